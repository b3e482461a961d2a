package services

import (
	"fmt"

	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// BOMValidator provides validation for BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	DuplicateLines []entities.BOMLine
	TypeErrors     []string
	Errors         []string
}

// Valid reports whether no problems were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM checks a set of BOM lines for type errors and repeated pairs.
// products must contain every product referenced by the lines.
func (v *BOMValidator) ValidateBOM(bomLines []entities.BOMLine, products map[int64]*entities.Product) *ValidationResult {
	result := &ValidationResult{
		DuplicateLines: make([]entities.BOMLine, 0),
		TypeErrors:     make([]string, 0),
		Errors:         make([]string, 0),
	}

	for _, line := range bomLines {
		if err := line.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("BOM line %d->%d: %v", line.FinishedProductID, line.RawMaterialID, err))
			continue
		}
		if err := v.checkTypes(line, products); err != nil {
			result.TypeErrors = append(result.TypeErrors, err.Error())
		}
	}
	result.Errors = append(result.Errors, result.TypeErrors...)

	result.DuplicateLines = v.detectDuplicateLines(bomLines)
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	return result
}

// ValidateNewLine checks a single line against the lines already stored for its product
func (v *BOMValidator) ValidateNewLine(line entities.BOMLine, existing []*entities.BOMLine, products map[int64]*entities.Product) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if err := v.checkTypes(line, products); err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID != line.ID && e.FinishedProductID == line.FinishedProductID && e.RawMaterialID == line.RawMaterialID {
			return fmt.Errorf("raw material %d is already in the BOM of product %d: %w",
				line.RawMaterialID, line.FinishedProductID, entities.ErrConflict)
		}
	}
	return nil
}

// checkTypes enforces that lines go from a finished product to a raw material
func (v *BOMValidator) checkTypes(line entities.BOMLine, products map[int64]*entities.Product) error {
	parent, ok := products[line.FinishedProductID]
	if !ok {
		return entities.Invalidf("finished product %d does not exist", line.FinishedProductID)
	}
	child, ok := products[line.RawMaterialID]
	if !ok {
		return entities.Invalidf("raw material %d does not exist", line.RawMaterialID)
	}
	if parent.Type != entities.FinishedGood {
		return entities.Invalidf("product %s is not a finished product", parent.SKU)
	}
	if child.Type != entities.RawMaterial {
		return entities.Invalidf("product %s is not a raw material", child.SKU)
	}
	return nil
}

// detectDuplicateLines returns every line after the first that repeats a (finished product, raw material) pair
func (v *BOMValidator) detectDuplicateLines(bomLines []entities.BOMLine) []entities.BOMLine {
	type pair struct{ finished, raw int64 }
	seen := make(map[pair]bool)
	duplicates := make([]entities.BOMLine, 0)

	for _, line := range bomLines {
		key := pair{line.FinishedProductID, line.RawMaterialID}
		if seen[key] {
			duplicates = append(duplicates, line)
			continue
		}
		seen[key] = true
	}

	return duplicates
}
