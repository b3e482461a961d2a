package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle state of a production run
type RunStatus int

const (
	RunChecked RunStatus = iota
	RunInProgress
	RunCompleted
	RunCancelled
)

// String method for RunStatus enum
func (s RunStatus) String() string {
	switch s {
	case RunChecked:
		return "checked"
	case RunInProgress:
		return "in_progress"
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseRunStatus converts the stored form back into a RunStatus
func ParseRunStatus(s string) (RunStatus, error) {
	switch strings.ToLower(s) {
	case "checked":
		return RunChecked, nil
	case "in_progress":
		return RunInProgress, nil
	case "completed":
		return RunCompleted, nil
	case "cancelled":
		return RunCancelled, nil
	default:
		return 0, fmt.Errorf("unknown run status %q", s)
	}
}

func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseRunStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no further transitions are possible
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// CanTransition reports whether a run in s may move to next
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunChecked:
		return next == RunInProgress || next == RunCancelled
	case RunInProgress:
		return next == RunCompleted || next == RunCancelled
	default:
		return false
	}
}

// RunMaterial is the requirement snapshot for one raw material taken when the run was planned
type RunMaterial struct {
	RawMaterialID    int64           `json:"raw_material_id"`
	MaterialName     string          `json:"material_name"`
	MaterialSKU      SKU             `json:"material_sku"`
	QuantityPerUnit  decimal.Decimal `json:"quantity_per_unit"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// ProductionRun turns raw materials into finished goods according to a BOM
type ProductionRun struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Status      RunStatus       `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Materials   []RunMaterial   `json:"materials"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// NewProductionRun creates a validated run in the checked state
func NewProductionRun(productID int64, productName string, quantity decimal.Decimal, notes string, materials []RunMaterial) (*ProductionRun, error) {
	if productID <= 0 {
		return nil, Invalidf("product id must be positive, got %d", productID)
	}
	if !quantity.IsPositive() {
		return nil, Invalidf("quantity to produce must be positive, got %s", quantity)
	}
	if len(materials) == 0 {
		return nil, Invalidf("product %d has no bill of materials", productID)
	}

	unitCost := decimal.Zero
	for _, m := range materials {
		unitCost = unitCost.Add(m.QuantityPerUnit.Mul(m.UnitPrice))
	}

	return &ProductionRun{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Status:      RunChecked,
		Notes:       strings.TrimSpace(notes),
		UnitCost:    unitCost,
		Materials:   materials,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Transition moves the run to next and stamps the matching timestamp
func (r *ProductionRun) Transition(next RunStatus, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("run %d %s -> %s: %w", r.ID, r.Status, next, ErrInvalidTransition)
	}
	at = at.UTC()
	switch next {
	case RunInProgress:
		r.StartedAt = &at
	case RunCompleted:
		r.CompletedAt = &at
	case RunCancelled:
		r.CancelledAt = &at
	}
	r.Status = next
	return nil
}
