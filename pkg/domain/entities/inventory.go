package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CheckResult is the outcome of a single receiving inspection criterion
type CheckResult int

const (
	CheckNA CheckResult = iota
	CheckAcceptable
	CheckNotAcceptable
)

// String method for CheckResult enum
func (r CheckResult) String() string {
	switch r {
	case CheckAcceptable:
		return "acceptable"
	case CheckNotAcceptable:
		return "not_acceptable"
	default:
		return "na"
	}
}

// ParseCheckResult converts the stored form back into a CheckResult; empty means na
func ParseCheckResult(s string) (CheckResult, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a":
		return CheckNA, nil
	case "acceptable":
		return CheckAcceptable, nil
	case "not_acceptable", "not acceptable":
		return CheckNotAcceptable, nil
	default:
		return CheckNA, fmt.Errorf("unknown check result %q", s)
	}
}

func (r CheckResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *CheckResult) UnmarshalText(b []byte) error {
	parsed, err := ParseCheckResult(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// QCStatus is the overall receiving decision for a batch
type QCStatus int

const (
	QCAccepted QCStatus = iota
	QCRejected
)

// String method for QCStatus enum
func (s QCStatus) String() string {
	switch s {
	case QCAccepted:
		return "accepted"
	case QCRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ParseQCStatus converts the stored form back into a QCStatus; empty means accepted
func ParseQCStatus(s string) (QCStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accepted":
		return QCAccepted, nil
	case "rejected":
		return QCRejected, nil
	default:
		return QCAccepted, fmt.Errorf("unknown quality status %q", s)
	}
}

func (s QCStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *QCStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseQCStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// QualityCheck is the receiving inspection recorded against a batch
type QualityCheck struct {
	Color             CheckResult `json:"color"`
	Packaging         CheckResult `json:"packaging"`
	ShelfLife         CheckResult `json:"shelf_life"`
	Weight            CheckResult `json:"weight"`
	COA               CheckResult `json:"coa"`
	SealIntegrity     CheckResult `json:"seal_integrity"`
	Labelling         CheckResult `json:"labelling"`
	StorageConditions CheckResult `json:"storage_conditions"`
	OverallStatus     QCStatus    `json:"overall_status"`
	Notes             string      `json:"notes,omitempty"`
}

// Criteria returns the eight inspection results keyed by column name
func (q QualityCheck) Criteria() map[string]CheckResult {
	return map[string]CheckResult{
		"color":              q.Color,
		"packaging":          q.Packaging,
		"shelf_life":         q.ShelfLife,
		"weight":             q.Weight,
		"coa":                q.COA,
		"seal_integrity":     q.SealIntegrity,
		"labelling":          q.Labelling,
		"storage_conditions": q.StorageConditions,
	}
}

// Passed reports whether the batch was accepted into stock
func (q QualityCheck) Passed() bool {
	return q.OverallStatus == QCAccepted
}

// Failures lists the criteria marked not acceptable
func (q QualityCheck) Failures() []string {
	var failed []string
	for _, name := range []string{"color", "packaging", "shelf_life", "weight", "coa", "seal_integrity", "labelling", "storage_conditions"} {
		if q.Criteria()[name] == CheckNotAcceptable {
			failed = append(failed, name)
		}
	}
	return failed
}

// Batch is a lot of raw material received from a supplier
type Batch struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	BatchNumber       string          `json:"batch_number"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	DateReceived      time.Time       `json:"date_received"`
	ExpirationDate    *time.Time      `json:"expiration_date,omitempty"`
	Barcode           string          `json:"barcode,omitempty"`
	COAProvided       bool            `json:"coa_provided"`
	KEBSSMarkNumber   string          `json:"kebs_smark_number,omitempty"`
	ReceiverName      string          `json:"receiver_name"`
	SupplierID        *int64          `json:"supplier_id,omitempty"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	Quality           QualityCheck    `json:"quality_check"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewBatch creates a validated Batch. Rejected batches hold no usable quantity.
func NewBatch(productID int64, batchNumber string, quantity decimal.Decimal, receiverName string, qc QualityCheck, received time.Time) (*Batch, error) {
	if productID <= 0 {
		return nil, Invalidf("raw material must be selected")
	}
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return nil, Invalidf("batch number cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, Invalidf("quantity received must be positive, got %s", quantity)
	}
	receiverName = strings.TrimSpace(receiverName)
	if receiverName == "" {
		return nil, Invalidf("receiver name cannot be empty")
	}

	remaining := quantity
	if !qc.Passed() {
		remaining = decimal.Zero
	}

	return &Batch{
		ProductID:         productID,
		BatchNumber:       batchNumber,
		QuantityReceived:  quantity,
		QuantityRemaining: remaining,
		DateReceived:      received.UTC(),
		ReceiverName:      receiverName,
		PricePerUnit:      decimal.Zero,
		Quality:           qc,
	}, nil
}

// Active reports whether the batch still has usable quantity
func (b *Batch) Active() bool {
	return b.Quality.Passed() && b.QuantityRemaining.IsPositive()
}

// DaysUntilExpiry returns whole days from now until expiry; ok is false when no expiry is recorded
func (b *Batch) DaysUntilExpiry(now time.Time) (days int, ok bool) {
	if b.ExpirationDate == nil {
		return 0, false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := b.ExpirationDate.UTC().Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24), true
}

// ExpiresWithin reports whether an active batch expires inside the window starting today
func (b *Batch) ExpiresWithin(now time.Time, windowDays int) bool {
	days, ok := b.DaysUntilExpiry(now)
	return ok && b.QuantityRemaining.IsPositive() && days <= windowDays
}

// BatchConsumption records how much of a batch a withdrawal drew down
type BatchConsumption struct {
	BatchID     int64           `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ConsumptionResult is the outcome of drawing a quantity from batches oldest first
type ConsumptionResult struct {
	ProductID    int64              `json:"product_id"`
	Requested    decimal.Decimal    `json:"requested"`
	Consumed     decimal.Decimal    `json:"consumed"`
	Uncovered    decimal.Decimal    `json:"uncovered"`
	ConsumedFrom []BatchConsumption `json:"consumed_from"`
}
