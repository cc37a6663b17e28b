package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/repository/rawrecord_repo"
)

const uniqueViolationCode = "23505"

type pgRawRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRawRecordRepository(db *sql.DB, l *zap.Logger) rawrecord_repo.RawRecordRepository {
	return &pgRawRecordRepository{db: db, logger: l}
}

func (r *pgRawRecordRepository) CreateTx(ctx context.Context, tx *sql.Tx, rec *domain.RawRecord) error {
	query := `INSERT INTO raw_records (id, source, payload, fingerprint, received_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.ExecContext(ctx, query, rec.ID, rec.Source, rec.Payload, rec.Fingerprint, rec.ReceivedAt)
	if err != nil {
		var pqErr *pq.Error
		// Unique index on fingerprint: first writer wins.
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateContent
		}
		r.logger.Error("Failed to create raw record", zap.String("record_id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to create raw record: %w", err)
	}
	r.logger.Debug("Raw record created", zap.String("record_id", rec.ID), zap.String("source", string(rec.Source)))
	return nil
}

func (r *pgRawRecordRepository) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM raw_records WHERE fingerprint = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(&exists); err != nil {
		r.logger.Error("Failed to check fingerprint existence", zap.Error(err))
		return false, fmt.Errorf("failed to check fingerprint existence: %w", err)
	}
	return exists, nil
}
