package entities

import (
	"github.com/shopspring/decimal"
)

// BOMLine states how much of one raw material goes into one unit of a finished product
type BOMLine struct {
	ID                int64           `json:"id"`
	FinishedProductID int64           `json:"finished_product_id"`
	RawMaterialID     int64           `json:"raw_material_id"`
	QuantityRequired  decimal.Decimal `json:"quantity_required"`
	ProductVolume     decimal.Decimal `json:"product_volume"`
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(finishedProductID, rawMaterialID int64, quantityRequired, productVolume decimal.Decimal) (*BOMLine, error) {
	line := &BOMLine{
		FinishedProductID: finishedProductID,
		RawMaterialID:     rawMaterialID,
		QuantityRequired:  quantityRequired,
		ProductVolume:     productVolume,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// Validate checks the line in isolation; type rules need the products and live in the BOM validator
func (l *BOMLine) Validate() error {
	if l.FinishedProductID <= 0 {
		return Invalidf("finished product id must be positive, got %d", l.FinishedProductID)
	}
	if l.RawMaterialID <= 0 {
		return Invalidf("raw material id must be positive, got %d", l.RawMaterialID)
	}
	if l.FinishedProductID == l.RawMaterialID {
		return Invalidf("finished product and raw material cannot be the same: %d", l.FinishedProductID)
	}
	if !l.QuantityRequired.IsPositive() {
		return Invalidf("quantity required must be positive, got %s", l.QuantityRequired)
	}
	if l.ProductVolume.IsNegative() {
		return Invalidf("product volume cannot be negative, got %s", l.ProductVolume)
	}
	return nil
}

// BOMEntry is a BOM line joined with the names of both products
type BOMEntry struct {
	BOMLine
	ProductName     string          `json:"product_name"`
	ProductSKU      SKU             `json:"product_sku"`
	MaterialName    string          `json:"material_name"`
	MaterialSKU     SKU             `json:"material_sku"`
	MaterialPrice   decimal.Decimal `json:"material_price"`
	MaterialInStock decimal.Decimal `json:"material_in_stock"`
}
