package rawrecord_repo

import (
	"context"
	"database/sql"

	"tradeflow/internal/domain"
)

type RawRecordRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, rec *domain.RawRecord) error
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
}
