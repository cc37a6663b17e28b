package history_repo

import (
	"context"

	"tradeflow/internal/domain"
)

// HistoryRepository is the append-only order-state ledger. Lookup methods
// return (nil, nil) when no matching row exists.
type HistoryRepository interface {
	Create(ctx context.Context, row *domain.OrderStateHistory) error
	LatestByFileID(ctx context.Context, fileID string) (*domain.OrderStateHistory, error)
	LatestByOrderAndDistributor(ctx context.Context, orderID string, distributorID int) (*domain.OrderStateHistory, error)
	LatestByOrderID(ctx context.Context, orderID string) (*domain.OrderStateHistory, error)
	ExistsByFileID(ctx context.Context, fileID string) (bool, error)
}
