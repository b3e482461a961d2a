package services

import (
	"testing"
	"time"

	"github.com/vsinha/stockroom/pkg/domain/entities"
)

func TestPlanConsumption_FIFO(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []*entities.Batch{
		{ID: 3, ProductID: 2, BatchNumber: "C", QuantityRemaining: d("30"), DateReceived: jan.AddDate(0, 2, 0)},
		{ID: 1, ProductID: 2, BatchNumber: "A", QuantityRemaining: d("10"), DateReceived: jan},
		{ID: 2, ProductID: 2, BatchNumber: "B", QuantityRemaining: d("20"), DateReceived: jan.AddDate(0, 1, 0)},
		{ID: 4, ProductID: 2, BatchNumber: "R", QuantityRemaining: d("99"), DateReceived: jan.AddDate(-1, 0, 0),
			Quality: entities.QualityCheck{OverallStatus: entities.QCRejected}},
		{ID: 5, ProductID: 9, BatchNumber: "X", QuantityRemaining: d("99"), DateReceived: jan.AddDate(-1, 0, 0)},
	}

	tests := []struct {
		name             string
		quantity         string
		expectedBatches  []string
		expectedConsumed string
		expectedUncover  string
	}{
		{"within first batch", "4", []string{"A"}, "4", "0"},
		{"spans two batches", "25", []string{"A", "B"}, "25", "0"},
		{"all batches", "60", []string{"A", "B", "C"}, "60", "0"},
		{"beyond batches", "75", []string{"A", "B", "C"}, "60", "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PlanConsumption(2, batches, d(tt.quantity))

			if len(result.ConsumedFrom) != len(tt.expectedBatches) {
				t.Fatalf("Expected %d batches, got %d", len(tt.expectedBatches), len(result.ConsumedFrom))
			}
			for i, want := range tt.expectedBatches {
				if result.ConsumedFrom[i].BatchNumber != want {
					t.Errorf("Expected batch %s at position %d, got %s", want, i, result.ConsumedFrom[i].BatchNumber)
				}
			}
			if !result.Consumed.Equal(d(tt.expectedConsumed)) {
				t.Errorf("Expected consumed %s, got %s", tt.expectedConsumed, result.Consumed)
			}
			if !result.Uncovered.Equal(d(tt.expectedUncover)) {
				t.Errorf("Expected uncovered %s, got %s", tt.expectedUncover, result.Uncovered)
			}
		})
	}
}

func TestInvoiceNumberer_Next(t *testing.T) {
	at := time.Date(2025, 7, 4, 13, 5, 9, 0, time.UTC)
	n := NewInvoiceNumbererWithClock(func() time.Time { return at })

	if got := n.Next(0); got != "INV-20250704-130509" {
		t.Errorf("Expected INV-20250704-130509, got %s", got)
	}
	if got := n.Next(1); got != "INV-20250704-130509-2" {
		t.Errorf("Expected INV-20250704-130509-2, got %s", got)
	}
}
