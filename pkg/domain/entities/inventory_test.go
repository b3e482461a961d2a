package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBatch_Validation(t *testing.T) {
	received := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	batch, err := NewBatch(7, " LOT-001 ", decimal.NewFromInt(50), "Amina", QualityCheck{}, received)
	if err != nil {
		t.Fatalf("Expected valid batch creation to succeed: %v", err)
	}
	if batch.BatchNumber != "LOT-001" {
		t.Errorf("Expected trimmed batch number LOT-001, got %q", batch.BatchNumber)
	}
	if !batch.QuantityRemaining.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected remaining 50, got %s", batch.QuantityRemaining)
	}
	if !batch.Active() {
		t.Errorf("Expected accepted batch with stock to be active")
	}

	testCases := []struct {
		name        string
		productID   int64
		batchNumber string
		quantity    decimal.Decimal
		receiver    string
		expectError string
	}{
		{"no material", 0, "LOT-001", decimal.NewFromInt(1), "Amina", "raw material must be selected"},
		{"empty batch number", 7, "  ", decimal.NewFromInt(1), "Amina", "batch number cannot be empty"},
		{"zero quantity", 7, "LOT-001", decimal.Zero, "Amina", "quantity received must be positive, got 0"},
		{"empty receiver", 7, "LOT-001", decimal.NewFromInt(1), "", "receiver name cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBatch(tc.productID, tc.batchNumber, tc.quantity, tc.receiver, QualityCheck{}, received)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBatch_RejectedHoldsNoStock(t *testing.T) {
	qc := QualityCheck{Color: CheckNotAcceptable, OverallStatus: QCRejected}
	batch, err := NewBatch(7, "LOT-002", decimal.NewFromInt(20), "Amina", qc, time.Now())
	if err != nil {
		t.Fatalf("Expected rejected batch creation to succeed: %v", err)
	}
	if !batch.QuantityRemaining.IsZero() {
		t.Errorf("Expected rejected batch to have zero remaining, got %s", batch.QuantityRemaining)
	}
	if batch.Active() {
		t.Errorf("Expected rejected batch to be inactive")
	}
	if failures := batch.Quality.Failures(); len(failures) != 1 || failures[0] != "color" {
		t.Errorf("Expected failures [color], got %v", failures)
	}
}

func TestBatch_ExpiresWithin(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		return &d
	}

	tests := []struct {
		name      string
		expiry    *time.Time
		remaining decimal.Decimal
		expected  bool
		days      int
	}{
		{"expires today", day(0), decimal.NewFromInt(1), true, 0},
		{"inside window", day(29), decimal.NewFromInt(1), true, 29},
		{"window edge", day(30), decimal.NewFromInt(1), true, 30},
		{"outside window", day(31), decimal.NewFromInt(1), false, 31},
		{"already expired", day(-3), decimal.NewFromInt(1), true, -3},
		{"consumed batch", day(5), decimal.Zero, false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Batch{ExpirationDate: tt.expiry, QuantityRemaining: tt.remaining}
			if got := b.ExpiresWithin(now, 30); got != tt.expected {
				t.Errorf("Expected ExpiresWithin %v, got %v", tt.expected, got)
			}
			days, ok := b.DaysUntilExpiry(now)
			if !ok || days != tt.days {
				t.Errorf("Expected %d days until expiry, got %d (ok=%v)", tt.days, days, ok)
			}
		})
	}

	noExpiry := &Batch{QuantityRemaining: decimal.NewFromInt(1)}
	if noExpiry.ExpiresWithin(now, 30) {
		t.Errorf("Expected batch without expiry date to never expire")
	}
}

func TestCheckResult_Parse(t *testing.T) {
	tests := []struct {
		input    string
		expected CheckResult
	}{
		{"", CheckNA},
		{"na", CheckNA},
		{"Acceptable", CheckAcceptable},
		{"not_acceptable", CheckNotAcceptable},
		{"not acceptable", CheckNotAcceptable},
	}
	for _, tt := range tests {
		got, err := ParseCheckResult(tt.input)
		if err != nil {
			t.Fatalf("Unexpected error parsing %q: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("Expected %v for %q, got %v", tt.expected, tt.input, got)
		}
	}
	if _, err := ParseCheckResult("maybe"); err == nil {
		t.Errorf("Expected error for unknown check result")
	}
}
