package outbox_repo

import (
	"context"
	"database/sql"

	"tradeflow/internal/domain"
)

// OutboxRow is the backend-agnostic view the relay works with. The status
// labels carried in the store are deployment-configurable strings, so the
// row itself exposes only what the relay needs.
type OutboxRow struct {
	ID      string
	Payload []byte
}

// OutboxEventRepository owns writes on the ingestion side.
type OutboxEventRepository interface {
	CreateEventTx(ctx context.Context, tx *sql.Tx, evt *domain.OutboxEvent) error
	// AdvanceEventStatus moves an event from one status to the next. The
	// update is conditional on the current status so the transition can
	// never regress.
	AdvanceEventStatus(ctx context.Context, id string, from, to domain.OutboxEventStatus) error
}

// RelayStore is the polling/locking contract shared by the relational and
// document backends: fetch at most one row carrying the configured pending
// label, then flip its status once published.
type RelayStore interface {
	FetchNextPending(ctx context.Context) (*OutboxRow, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}
