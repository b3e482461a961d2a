package dto

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// SupplierInput carries the editable fields of a supplier
type SupplierInput struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	RawMaterials  string `json:"raw_materials"`
	CategoryCodes string `json:"category_codes"`
}

// ProductInput carries the editable fields of a raw material or finished product.
// Quantity is only honoured on create, as opening stock.
type ProductInput struct {
	Name         string               `json:"name"`
	SKU          entities.SKU         `json:"sku"`
	Type         entities.ProductType `json:"product_type"`
	Category     string               `json:"category"`
	CategoryCode string               `json:"category_code"`
	Quantity     decimal.Decimal      `json:"quantity"`
	PricePaid    decimal.Decimal      `json:"price_paid"`
	PriceSelling decimal.Decimal      `json:"price_selling"`
	SupplierID   *int64               `json:"supplier_id,omitempty"`
}

// BOMLineInput adds or edits one bill of materials line
type BOMLineInput struct {
	FinishedProductID int64           `json:"finished_product_id"`
	RawMaterialID     int64           `json:"raw_material_id"`
	QuantityRequired  decimal.Decimal `json:"quantity_required"`
	ProductVolume     decimal.Decimal `json:"product_volume"`
}

// StockAdjustment is a manual stock correction; positive adds, negative removes
type StockAdjustment struct {
	Delta decimal.Decimal `json:"delta"`
	Notes string          `json:"notes"`
}

// ProductCost is the BOM roll-up of a finished product
type ProductCost struct {
	ProductID int64               `json:"product_id"`
	SKU       entities.SKU        `json:"sku"`
	Name      string              `json:"name"`
	UnitCost  decimal.Decimal     `json:"unit_cost"`
	Margin    decimal.Decimal     `json:"margin"`
	Lines     []entities.BOMEntry `json:"lines"`
}

// ManufacturableProduct is a finished product that has a bill of materials
type ManufacturableProduct struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SKU          entities.SKU    `json:"sku"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Materials    int             `json:"materials"`
}
