package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// Batch display states, worst first
const (
	BatchRejected = "rejected"
	BatchDepleted = "depleted"
	BatchExpiring = "expiring"
	BatchActive   = "active"
)

// ReceiveBatchInput is a goods receiving form submission
type ReceiveBatchInput struct {
	MaterialID      int64           `json:"material_id"`
	BatchNumber     string          `json:"batch_number"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReceiverName    string          `json:"receiver_name"`
	SupplierID      *int64          `json:"supplier_id,omitempty"`
	DateReceived    *time.Time      `json:"date_received,omitempty"`
	ExpirationDate  *time.Time      `json:"expiration_date,omitempty"`
	Barcode         string          `json:"barcode"`
	COAProvided     bool            `json:"coa_provided"`
	KEBSSMarkNumber string          `json:"kebs_smark_number"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`

	Quality entities.QualityCheck `json:"quality_check"`
}

// BatchView is a batch joined with its material and supplier
type BatchView struct {
	entities.Batch
	MaterialName    string       `json:"material_name"`
	MaterialSKU     entities.SKU `json:"material_sku"`
	SupplierName    string       `json:"supplier_name"`
	DaysUntilExpiry *int         `json:"days_until_expiry,omitempty"`
	Status          string       `json:"status"`
}

// BatchDetails is the batch breakdown of one raw material
type BatchDetails struct {
	MaterialID     int64           `json:"material_id"`
	Batches        []BatchView     `json:"batches"`
	ActiveQuantity decimal.Decimal `json:"active_quantity"`
	AverageAgeDays int             `json:"average_age_days"`
	ExpiringSoon   int             `json:"expiring_soon"`
}

// MaterialFilter narrows the raw materials view
type MaterialFilter struct {
	Category   string
	SupplierID *int64
	Level      entities.StockLevel
}

// MaterialView is one row of the raw materials inventory
type MaterialView struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	SKU             entities.SKU    `json:"sku"`
	Category        string          `json:"category"`
	CategoryCode    string          `json:"category_code"`
	QuantityInStock decimal.Decimal `json:"quantity_in_stock"`
	PricePaid       decimal.Decimal `json:"price_paid"`
	SupplierName    string          `json:"supplier_name"`
	TotalValue      decimal.Decimal `json:"total_value"`
	BatchCount      int             `json:"batch_count"`
	ActiveBatches   int             `json:"active_batches"`
}

// MaterialSummary totals the rows of a raw materials view
type MaterialSummary struct {
	Items         int             `json:"items"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalBatches  int             `json:"total_batches"`
	ActiveBatches int             `json:"active_batches"`
}

// MaterialReport is the filtered raw materials view with its summary
type MaterialReport struct {
	Materials  []MaterialView  `json:"materials"`
	Summary    MaterialSummary `json:"summary"`
	Categories []string        `json:"categories"`
}

// LowStockItem is a product at or under the low stock threshold
type LowStockItem struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name"`
	SKU      entities.SKU         `json:"sku"`
	Type     entities.ProductType `json:"product_type"`
	Quantity decimal.Decimal      `json:"quantity"`
}

// Dashboard is the landing page summary
type Dashboard struct {
	RawMaterials      int             `json:"raw_materials"`
	FinishedProducts  int             `json:"finished_products"`
	RawMaterialValue  decimal.Decimal `json:"raw_material_value"`
	FinishedGoodValue decimal.Decimal `json:"finished_goods_value"`
	LowStock          []LowStockItem  `json:"low_stock"`
	ExpiringBatches   int             `json:"expiring_batches"`
	OpenRuns          int             `json:"open_runs"`
	Sales             SalesSummary    `json:"sales"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// TransactionView is a stock movement joined with its product
type TransactionView struct {
	entities.Transaction
	ProductName string       `json:"product_name"`
	ProductSKU  entities.SKU `json:"product_sku"`
}
