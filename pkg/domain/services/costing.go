package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// MaterialRequirement is the demand one production quantity places on a raw material
type MaterialRequirement struct {
	RawMaterialID   int64           `json:"raw_material_id"`
	MaterialName    string          `json:"material_name"`
	MaterialSKU     entities.SKU    `json:"material_sku"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	Needed          decimal.Decimal `json:"needed"`
	Available       decimal.Decimal `json:"available"`
	Shortage        decimal.Decimal `json:"shortage"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// Short reports whether on-hand stock does not cover the need
func (m MaterialRequirement) Short() bool {
	return m.Shortage.IsPositive()
}

// RequirementCheck is the result of checking a BOM against on-hand stock
type RequirementCheck struct {
	ProductID    int64                 `json:"product_id"`
	Quantity     decimal.Decimal       `json:"quantity"`
	Requirements []MaterialRequirement `json:"requirements"`
	OK           bool                  `json:"ok"`
}

// Shortages returns only the requirements that cannot be met
func (c *RequirementCheck) Shortages() []MaterialRequirement {
	var short []MaterialRequirement
	for _, r := range c.Requirements {
		if r.Short() {
			short = append(short, r)
		}
	}
	return short
}

// RunMaterials converts the check into the snapshot stored on a production run
func (c *RequirementCheck) RunMaterials() []entities.RunMaterial {
	out := make([]entities.RunMaterial, 0, len(c.Requirements))
	for _, r := range c.Requirements {
		out = append(out, entities.RunMaterial{
			RawMaterialID:    r.RawMaterialID,
			MaterialName:     r.MaterialName,
			MaterialSKU:      r.MaterialSKU,
			QuantityPerUnit:  r.QuantityPerUnit,
			QuantityRequired: r.Needed,
			UnitPrice:        r.UnitPrice,
		})
	}
	return out
}

// CostCalculator derives finished product costs and material needs from BOM lines
type CostCalculator struct{}

// NewCostCalculator creates a new cost calculator
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{}
}

// UnitCost sums quantity required times the material purchase price.
// Lines whose material is missing from materials contribute nothing.
func (c *CostCalculator) UnitCost(lines []*entities.BOMLine, materials map[int64]*entities.Product) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if m, ok := materials[line.RawMaterialID]; ok {
			total = total.Add(line.QuantityRequired.Mul(m.PricePaid))
		}
	}
	return total
}

// ExplodeRequirements computes needed = quantity required * quantity for each line
// and compares it with the material's stock.
func (c *CostCalculator) ExplodeRequirements(productID int64, quantity decimal.Decimal, lines []*entities.BOMLine, materials map[int64]*entities.Product) (*RequirementCheck, error) {
	if !quantity.IsPositive() {
		return nil, entities.Invalidf("quantity to produce must be positive, got %s", quantity)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("product %d has no bill of materials: %w", productID, entities.ErrNotFound)
	}

	check := &RequirementCheck{
		ProductID:    productID,
		Quantity:     quantity,
		Requirements: make([]MaterialRequirement, 0, len(lines)),
		OK:           true,
	}

	for _, line := range lines {
		m, ok := materials[line.RawMaterialID]
		if !ok {
			return nil, fmt.Errorf("raw material %d: %w", line.RawMaterialID, entities.ErrNotFound)
		}
		needed := line.QuantityRequired.Mul(quantity)
		shortage := decimal.Zero
		if m.QuantityInStock.LessThan(needed) {
			shortage = needed.Sub(m.QuantityInStock)
			check.OK = false
		}
		check.Requirements = append(check.Requirements, MaterialRequirement{
			RawMaterialID:   m.ID,
			MaterialName:    m.Name,
			MaterialSKU:     m.SKU,
			QuantityPerUnit: line.QuantityRequired,
			Needed:          needed,
			Available:       m.QuantityInStock,
			Shortage:        shortage,
			UnitPrice:       m.PricePaid,
		})
	}

	sort.SliceStable(check.Requirements, func(i, j int) bool {
		return check.Requirements[i].MaterialName < check.Requirements[j].MaterialName
	})
	return check, nil
}
