package repositories

import (
	"context"
	"time"

	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// ProductionRepository persists production runs and their requirement snapshots
type ProductionRepository interface {
	Create(ctx context.Context, run *entities.ProductionRun) error
	Get(ctx context.Context, id int64) (*entities.ProductionRun, error)
	// List returns runs newest first; limit <= 0 means all
	List(ctx context.Context, limit int) ([]*entities.ProductionRun, error)
	// Transition moves a run from one status to another only if it is still in from.
	// It fails with ErrInvalidTransition when the run has already moved on.
	Transition(ctx context.Context, id int64, from, to entities.RunStatus, at time.Time) error
}

// SaleRepository persists invoices and their line items
type SaleRepository interface {
	Create(ctx context.Context, sale *entities.Sale) error
	Get(ctx context.Context, id int64) (*entities.Sale, error)
	// List returns sales newest first; limit <= 0 means all
	List(ctx context.Context, limit int) ([]*entities.Sale, error)
}

// UserRepository persists operator accounts
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	Get(ctx context.Context, id int64) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}
