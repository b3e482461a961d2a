package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
)

func newInventoryService(b *testhelpers.Bakery, opts ...Option) *InventoryService {
	return NewInventoryService(b.Store, append([]Option{WithClock(testhelpers.Clock)}, opts...)...)
}

func TestInventoryService_Dashboard(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	if _, err := newProductionService(b).Produce(ctx, b.Cookies.ID, dec("20"), ""); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	service := newInventoryService(b)

	board, err := service.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if board.RawMaterials != 4 || board.FinishedProducts != 2 {
		t.Errorf("Expected 4 raw and 2 finished, got %d and %d", board.RawMaterials, board.FinishedProducts)
	}
	// 195*1.20 + 120*0.90 + 38*6.50 + 8*0.25
	assertDecimal(t, "raw material value", "591", board.RawMaterialValue)
	// 20 cookies at 0.95
	assertDecimal(t, "finished goods value", "19", board.FinishedGoodValue)
	if board.ExpiringBatches != 1 {
		t.Errorf("Expected 1 expiring batch, got %d", board.ExpiringBatches)
	}
	if board.OpenRuns != 0 {
		t.Errorf("Expected no open runs, got %d", board.OpenRuns)
	}

	var low []string
	for _, item := range board.LowStock {
		low = append(low, string(item.SKU))
	}
	if diff := cmp.Diff([]string{"FG-CAKE", "RM-EGG"}, low); diff != "" {
		t.Errorf("Low stock mismatch (-want +got):\n%s", diff)
	}
}

func TestInventoryService_Dashboard_CachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	c := cache.NewMemoryCache(cache.DefaultConfig())
	bus := events.NewInMemoryEventStore()
	t.Cleanup(func() { _ = bus.Close() })
	invalidator := cache.NewInvalidator(c, nil)
	if err := bus.Subscribe(invalidator.EventTypes(), invalidator); err != nil {
		t.Fatalf("Failed to subscribe invalidator: %v", err)
	}

	inventory := newInventoryService(b, WithCache(c))
	catalog := NewCatalogService(b.Store, WithEvents(bus), WithClock(testhelpers.Clock))

	first, err := inventory.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	assertDecimal(t, "raw material value", "610", first.RawMaterialValue)

	// a write behind the services' back is not seen until something invalidates
	if err := b.Store.Products().AdjustStock(ctx, b.Eggs.ID, dec("4")); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	cached, err := inventory.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	assertDecimal(t, "cached raw material value", "610", cached.RawMaterialValue)

	if _, err := catalog.AdjustStock(ctx, b.Eggs.ID, dto.StockAdjustment{Delta: dec("4"), Notes: "found a tray"}); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	bus.Wait()

	fresh, err := inventory.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	assertDecimal(t, "fresh raw material value", "612", fresh.RawMaterialValue)
}

func TestInventoryService_Dashboard_OpenRunsFollowRunStatus(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	c := cache.NewMemoryCache(cache.DefaultConfig())
	bus := events.NewInMemoryEventStore()
	t.Cleanup(func() { _ = bus.Close() })
	invalidator := cache.NewInvalidator(c, nil)
	if err := bus.Subscribe(invalidator.EventTypes(), invalidator); err != nil {
		t.Fatalf("Failed to subscribe invalidator: %v", err)
	}

	inventory := newInventoryService(b, WithCache(c))
	production := newProductionService(b, WithEvents(bus))

	openRuns := func() int {
		t.Helper()
		bus.Wait()
		board, err := inventory.Dashboard(ctx)
		if err != nil {
			t.Fatalf("Dashboard failed: %v", err)
		}
		return board.OpenRuns
	}

	if n := openRuns(); n != 0 {
		t.Fatalf("Expected no open runs, got %d", n)
	}
	run, err := production.PlanRun(ctx, b.Cookies.ID, dec("10"), "")
	if err != nil {
		t.Fatalf("PlanRun failed: %v", err)
	}
	if n := openRuns(); n != 1 {
		t.Errorf("Expected 1 open run after planning, got %d", n)
	}
	if _, err := production.CancelRun(ctx, run.ID); err != nil {
		t.Fatalf("CancelRun failed: %v", err)
	}
	if n := openRuns(); n != 0 {
		t.Errorf("Expected no open runs after cancelling, got %d", n)
	}
}

func TestInventoryService_RawMaterials(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newInventoryService(b)

	tests := []struct {
		name   string
		filter dto.MaterialFilter
		want   []string
	}{
		{"all", dto.MaterialFilter{}, []string{"RM-BUT", "RM-SUG", "RM-EGG", "RM-FLR"}},
		{"low stock", dto.MaterialFilter{Level: entities.LowStock}, []string{"RM-EGG"}},
		{"by supplier", dto.MaterialFilter{SupplierID: &b.Supplier.ID}, []string{"RM-SUG", "RM-FLR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := service.RawMaterials(ctx, tt.filter)
			if err != nil {
				t.Fatalf("RawMaterials failed: %v", err)
			}
			var got []string
			for _, m := range report.Materials {
				got = append(got, string(m.SKU))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Materials mismatch (-want +got):\n%s", diff)
			}
			if report.Summary.Items != len(tt.want) {
				t.Errorf("Expected %d items in summary, got %d", len(tt.want), report.Summary.Items)
			}
		})
	}

	report, _ := service.RawMaterials(ctx, dto.MaterialFilter{})
	if report.Summary.TotalBatches != 2 || report.Summary.ActiveBatches != 2 {
		t.Errorf("Expected 2 active batches, got %d/%d", report.Summary.ActiveBatches, report.Summary.TotalBatches)
	}
	assertDecimal(t, "total value", "610", report.Summary.TotalValue)
	for _, m := range report.Materials {
		if m.SKU == "RM-FLR" && m.SupplierName != "Mombasa Mills" {
			t.Errorf("Expected flour supplier name, got %q", m.SupplierName)
		}
	}
}

func TestInventoryService_BatchDetails(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newInventoryService(b)

	details, err := service.BatchDetails(ctx, b.Flour.ID)
	if err != nil {
		t.Fatalf("BatchDetails failed: %v", err)
	}
	if len(details.Batches) != 2 || details.Batches[0].BatchNumber != "FLR-001" {
		t.Fatalf("Expected FLR-001 then FLR-002, got %d batches", len(details.Batches))
	}
	assertDecimal(t, "active quantity", "200", details.ActiveQuantity)
	// 56 and 29 days old
	if details.AverageAgeDays != 42 {
		t.Errorf("Expected average age 42, got %d", details.AverageAgeDays)
	}
	if details.ExpiringSoon != 1 {
		t.Errorf("Expected 1 expiring batch, got %d", details.ExpiringSoon)
	}

	if _, err := service.BatchDetails(ctx, 999); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInventoryService_Transactions(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newInventoryService(b)

	if _, err := newProductionService(b).Produce(ctx, b.Cookies.ID, dec("4"), ""); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	views, err := service.Transactions(ctx, repositories.TransactionFilter{ProductID: b.Flour.ID})
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(views) != 1 || views[0].ProductSKU != "RM-FLR" {
		t.Errorf("Expected one flour movement, got %+v", views)
	}

	_, err = service.Transactions(ctx, repositories.TransactionFilter{Source: "gift"})
	if !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown source, got %v", err)
	}
}
