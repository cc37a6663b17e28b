package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/repository/outbox_repo"
)

// OutboxRepository serves both the ingestion-side event writes and the
// relay-side RelayStore contract. Table name and status labels come from
// configuration, so the queries are built once in the constructor.
type OutboxRepository struct {
	db           *sql.DB
	table        string
	pendingLabel string
	logger       *zap.Logger

	fetchQuery string
}

func NewOutboxRepository(db *sql.DB, table, pendingLabel string, l *zap.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:           db,
		table:        table,
		pendingLabel: pendingLabel,
		logger:       l,
		fetchQuery: fmt.Sprintf(
			`SELECT id, payload FROM %s WHERE status = $1 ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED`,
			table,
		),
	}
}

func (r *OutboxRepository) CreateEventTx(ctx context.Context, tx *sql.Tx, evt *domain.OutboxEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, raw_record_id, source, event_type, payload, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.table,
	)
	_, err := tx.ExecContext(ctx, query,
		evt.ID, evt.RawRecordID, evt.Source, evt.EventType, evt.Payload, evt.Status, evt.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create outbox event", zap.String("event_id", evt.ID), zap.Error(err))
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	r.logger.Debug("Outbox event created", zap.String("event_id", evt.ID), zap.String("status", string(evt.Status)))
	return nil
}

func (r *OutboxRepository) AdvanceEventStatus(ctx context.Context, id string, from, to domain.OutboxEventStatus) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2 AND status = $3`, r.table)
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		r.logger.Error("Failed to advance outbox event status", zap.String("event_id", id), zap.Error(err))
		return fmt.Errorf("failed to advance outbox event %s to %s: %w", id, to, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Outbox event not advanced, status already moved on",
			zap.String("event_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	}
	return nil
}

// FetchNextPending takes the row lock in its own short transaction: the
// locking read makes concurrently running relays skip rows already claimed
// instead of blocking on them. The lock is released at commit; publishing
// happens outside it.
func (r *OutboxRepository) FetchNextPending(ctx context.Context) (*outbox_repo.OutboxRow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin fetch transaction: %w", err)
	}

	row := &outbox_repo.OutboxRow{}
	err = tx.QueryRowContext(ctx, r.fetchQuery, r.pendingLabel).Scan(&row.ID, &row.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return nil, nil
	}
	if err != nil {
		_ = tx.Rollback()
		r.logger.Error("Failed to fetch next pending outbox row", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch next pending outbox row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fetch transaction: %w", err)
	}
	return row, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, sent_at = NOW() WHERE id = $2`, r.table)
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		r.logger.Error("Failed to update outbox row status", zap.String("row_id", id), zap.Error(err))
		return fmt.Errorf("failed to update outbox row %s to %s: %w", id, status, err)
	}
	r.logger.Debug("Outbox row status updated", zap.String("row_id", id), zap.String("status", status))
	return nil
}
