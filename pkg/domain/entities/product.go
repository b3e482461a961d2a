package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SKU is a unique stock keeping unit code
type SKU string

// ProductType distinguishes purchased raw materials from manufactured goods
type ProductType int

const (
	RawMaterial ProductType = iota
	FinishedGood
)

// String method for ProductType enum
func (t ProductType) String() string {
	switch t {
	case RawMaterial:
		return "raw"
	case FinishedGood:
		return "finished"
	default:
		return "unknown"
	}
}

// ParseProductType converts the stored form back into a ProductType
func ParseProductType(s string) (ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw":
		return RawMaterial, nil
	case "finished":
		return FinishedGood, nil
	default:
		return 0, fmt.Errorf("unknown product type %q", s)
	}
}

func (t ProductType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ProductType) UnmarshalText(b []byte) error {
	parsed, err := ParseProductType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Product is either a raw material or a finished good held in stock
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	SKU             SKU             `json:"sku"`
	Type            ProductType     `json:"product_type"`
	Category        string          `json:"category,omitempty"`
	CategoryCode    string          `json:"category_code,omitempty"`
	QuantityInStock decimal.Decimal `json:"quantity_in_stock"`
	PricePaid       decimal.Decimal `json:"price_paid"`
	PriceSelling    decimal.Decimal `json:"price_selling"`
	SupplierID      *int64          `json:"supplier_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewProduct creates a validated Product with zero stock
func NewProduct(name string, sku SKU, productType ProductType) (*Product, error) {
	p := &Product{
		Name: strings.TrimSpace(name),
		SKU:  SKU(strings.TrimSpace(string(sku))),
		Type: productType,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks product invariants
func (p *Product) Validate() error {
	if p.Name == "" {
		return Invalidf("product name cannot be empty")
	}
	if string(p.SKU) == "" {
		return Invalidf("sku cannot be empty")
	}
	if p.Type != RawMaterial && p.Type != FinishedGood {
		return Invalidf("invalid product type %d", int(p.Type))
	}
	if p.QuantityInStock.IsNegative() {
		return Invalidf("quantity in stock cannot be negative, got %s", p.QuantityInStock)
	}
	if p.PricePaid.IsNegative() {
		return Invalidf("price paid cannot be negative, got %s", p.PricePaid)
	}
	if p.PriceSelling.IsNegative() {
		return Invalidf("selling price cannot be negative, got %s", p.PriceSelling)
	}
	return nil
}

// IsRaw reports whether the product is a raw material
func (p *Product) IsRaw() bool {
	return p.Type == RawMaterial
}

// StockValue is on-hand quantity valued at the purchase price
func (p *Product) StockValue() decimal.Decimal {
	return p.QuantityInStock.Mul(p.PricePaid).Round(2)
}

// StockLevel buckets on-hand quantity for inventory filters
type StockLevel int

const (
	AnyStock StockLevel = iota
	InStock
	LowStock
	OutOfStock
)

// String method for StockLevel enum
func (l StockLevel) String() string {
	switch l {
	case InStock:
		return "in_stock"
	case LowStock:
		return "low_stock"
	case OutOfStock:
		return "out_of_stock"
	default:
		return "all"
	}
}

// ParseStockLevel accepts the query-string form of a StockLevel
func ParseStockLevel(s string) (StockLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AnyStock, nil
	case "in_stock", "in":
		return InStock, nil
	case "low_stock", "low":
		return LowStock, nil
	case "out_of_stock", "out":
		return OutOfStock, nil
	default:
		return AnyStock, fmt.Errorf("unknown stock level %q", s)
	}
}

// Matches reports whether qty falls in the level given the low stock threshold
func (l StockLevel) Matches(qty, lowThreshold decimal.Decimal) bool {
	switch l {
	case InStock:
		return qty.IsPositive()
	case LowStock:
		return qty.LessThanOrEqual(lowThreshold)
	case OutOfStock:
		return qty.IsZero()
	default:
		return true
	}
}
