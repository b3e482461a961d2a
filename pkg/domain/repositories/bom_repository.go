package repositories

import (
	"context"

	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	Create(ctx context.Context, line *entities.BOMLine) error
	Get(ctx context.Context, id int64) (*entities.BOMLine, error)
	Update(ctx context.Context, line *entities.BOMLine) error
	Delete(ctx context.Context, id int64) error

	// ListForProduct returns the lines of one finished product ordered by id
	ListForProduct(ctx context.Context, finishedProductID int64) ([]*entities.BOMLine, error)
	// List returns every BOM line ordered by finished product then id
	List(ctx context.Context) ([]*entities.BOMLine, error)
}
