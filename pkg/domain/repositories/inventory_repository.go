package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// BatchRepository provides access to received raw material batches and their quality checks
type BatchRepository interface {
	// Create stores the batch together with its quality check
	Create(ctx context.Context, batch *entities.Batch) error
	Get(ctx context.Context, id int64) (*entities.Batch, error)

	// ListForProduct returns batches of one material oldest received first
	ListForProduct(ctx context.Context, productID int64) ([]*entities.Batch, error)
	// ListRecent returns batches newest first; limit <= 0 means all
	ListRecent(ctx context.Context, limit int) ([]*entities.Batch, error)
	// Search matches batch numbers case-insensitively by substring
	Search(ctx context.Context, query string) ([]*entities.Batch, error)
	// ListWithRemaining returns batches that still hold quantity
	ListWithRemaining(ctx context.Context) ([]*entities.Batch, error)

	// Consume draws qty from a batch, failing with ErrInsufficientStock if the batch holds less
	Consume(ctx context.Context, id int64, qty decimal.Decimal) error
}
