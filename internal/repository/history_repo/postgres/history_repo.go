package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/repository/history_repo"
)

const historyColumns = `id, file_id, order_id, distributor_id, previous_state, current_state, source_service, event_time`

type pgHistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewHistoryRepository(db *sql.DB, l *zap.Logger) history_repo.HistoryRepository {
	return &pgHistoryRepository{db: db, logger: l}
}

func (r *pgHistoryRepository) Create(ctx context.Context, row *domain.OrderStateHistory) error {
	query := `
		INSERT INTO order_state_history (file_id, order_id, distributor_id, previous_state, current_state, source_service, event_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		row.FileID, row.OrderID, row.DistributorID, row.PreviousState, row.CurrentState, row.SourceService, row.EventTime)
	if err != nil {
		r.logger.Error("Failed to create state history row", zap.Error(err))
		return fmt.Errorf("failed to create state history row: %w", err)
	}
	return nil
}

func (r *pgHistoryRepository) LatestByFileID(ctx context.Context, fileID string) (*domain.OrderStateHistory, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_state_history WHERE file_id = $1 ORDER BY event_time DESC LIMIT 1`, historyColumns)
	return r.queryOne(ctx, query, fileID)
}

func (r *pgHistoryRepository) LatestByOrderAndDistributor(ctx context.Context, orderID string, distributorID int) (*domain.OrderStateHistory, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_state_history WHERE order_id = $1 AND distributor_id = $2 ORDER BY event_time DESC LIMIT 1`, historyColumns)
	return r.queryOne(ctx, query, orderID, distributorID)
}

func (r *pgHistoryRepository) LatestByOrderID(ctx context.Context, orderID string) (*domain.OrderStateHistory, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_state_history WHERE order_id = $1 ORDER BY event_time DESC LIMIT 1`, historyColumns)
	return r.queryOne(ctx, query, orderID)
}

func (r *pgHistoryRepository) ExistsByFileID(ctx context.Context, fileID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM order_state_history WHERE file_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, fileID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check file id existence", zap.String("file_id", fileID), zap.Error(err))
		return false, fmt.Errorf("failed to check file id existence: %w", err)
	}
	return exists, nil
}

func (r *pgHistoryRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.OrderStateHistory, error) {
	row := &domain.OrderStateHistory{}
	var fileID, orderID, previousState sql.NullString
	var distributorID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&row.ID, &fileID, &orderID, &distributorID, &previousState, &row.CurrentState, &row.SourceService, &row.EventTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to query state history", zap.Error(err))
		return nil, fmt.Errorf("failed to query state history: %w", err)
	}

	if fileID.Valid {
		row.FileID = &fileID.String
	}
	if orderID.Valid {
		row.OrderID = &orderID.String
	}
	if previousState.Valid {
		row.PreviousState = &previousState.String
	}
	if distributorID.Valid {
		v := int(distributorID.Int64)
		row.DistributorID = &v
	}
	return row, nil
}
