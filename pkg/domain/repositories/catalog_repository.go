package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// SupplierRepository provides access to supplier master data
type SupplierRepository interface {
	Create(ctx context.Context, supplier *entities.Supplier) error
	Get(ctx context.Context, id int64) (*entities.Supplier, error)
	GetByName(ctx context.Context, name string) (*entities.Supplier, error)
	// List returns suppliers ordered by name
	List(ctx context.Context) ([]*entities.Supplier, error)
	Update(ctx context.Context, supplier *entities.Supplier) error
	Delete(ctx context.Context, id int64) error
}

// ProductFilter narrows product listings; zero values match everything
type ProductFilter struct {
	Type       *entities.ProductType
	Category   string
	SupplierID *int64
}

// Matches reports whether p passes the filter
func (f ProductFilter) Matches(p *entities.Product) bool {
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.SupplierID != nil && (p.SupplierID == nil || *p.SupplierID != *f.SupplierID) {
		return false
	}
	return true
}

// ProductRepository provides access to raw materials and finished goods
type ProductRepository interface {
	Create(ctx context.Context, product *entities.Product) error
	Get(ctx context.Context, id int64) (*entities.Product, error)
	GetBySKU(ctx context.Context, sku entities.SKU) (*entities.Product, error)
	// List returns matching products ordered by name
	List(ctx context.Context, filter ProductFilter) ([]*entities.Product, error)
	Update(ctx context.Context, product *entities.Product) error
	Delete(ctx context.Context, id int64) error

	// AdjustStock adds delta to on-hand quantity; a negative result fails with ErrInsufficientStock
	AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) error
	SetPricePaid(ctx context.Context, id int64, price decimal.Decimal) error
}
