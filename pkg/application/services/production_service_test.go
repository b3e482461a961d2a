package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
)

func newProductionService(b *testhelpers.Bakery, opts ...Option) *ProductionService {
	return NewProductionService(b.Store, append([]Option{WithClock(testhelpers.Clock)}, opts...)...)
}

func stockOf(t *testing.T, store repositories.Store, p *entities.Product) string {
	t.Helper()
	got, err := store.Products().Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Failed to load %s: %v", p.SKU, err)
	}
	return got.QuantityInStock.String()
}

func TestProductionService_CheckMaterials(t *testing.T) {
	b := testhelpers.BuildBakery()
	service := newProductionService(b)

	tests := []struct {
		name      string
		quantity  string
		wantOK    bool
		shortages int
	}{
		{"within stock", "2", true, 0},
		{"eggs run out", "3", false, 1},
		{"everything short", "500", false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := service.CheckMaterials(context.Background(), b.Cake.ID, dec(tt.quantity))
			if err != nil {
				t.Fatalf("CheckMaterials failed: %v", err)
			}
			if check.OK != tt.wantOK {
				t.Errorf("Expected OK=%v, got %v", tt.wantOK, check.OK)
			}
			if len(check.Shortages()) != tt.shortages {
				t.Errorf("Expected %d shortages, got %d", tt.shortages, len(check.Shortages()))
			}
			if len(check.Requirements) != 4 {
				t.Errorf("Expected 4 requirements, got %d", len(check.Requirements))
			}
		})
	}
}

func TestProductionService_Produce(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		ctx := context.Background()
		bus, rec := newBus(t)
		service := newProductionService(b, WithEvents(bus))

		result, err := service.Produce(ctx, b.Cake.ID, dec("2"), "morning bake")
		if err != nil {
			t.Fatalf("Produce failed: %v", err)
		}
		bus.Wait()

		if result.Run.Status != entities.RunCompleted {
			t.Errorf("Expected run completed, got %s", result.Run.Status)
		}
		if result.Run.CompletedAt == nil || result.Run.StartedAt == nil {
			t.Error("Expected start and completion timestamps")
		}
		assertDecimal(t, "unit cost", "3.17", result.Run.UnitCost)

		want := map[*entities.Product]string{
			b.Flour:  "199",
			b.Sugar:  "119.4",
			b.Butter: "39.6",
			b.Eggs:   "0",
			b.Cake:   "2",
		}
		for p, qty := range want {
			if got := stockOf(t, b.Store, p); !dec(got).Equal(dec(qty)) {
				t.Errorf("Expected %s stock %s, got %s", p.SKU, qty, got)
			}
		}

		movements, err := b.Store.Transactions().List(ctx, repositories.TransactionFilter{Source: entities.SourceProduction})
		if err != nil {
			t.Fatalf("Failed to list transactions: %v", err)
		}
		if len(movements) != 5 {
			t.Fatalf("Expected 4 material draws and 1 output, got %d movements", len(movements))
		}
		for _, m := range movements {
			if m.ReferenceID == nil || *m.ReferenceID != result.Run.ID {
				t.Errorf("Expected movement %d to reference run %d", m.ID, result.Run.ID)
			}
		}

		if n := rec.count(events.ProductionCompletedEvent); n != 1 {
			t.Errorf("Expected 1 production completed event, got %d", n)
		}
		if n := rec.count(events.StockMovedEvent); n != 5 {
			t.Errorf("Expected 5 stock moved events, got %d", n)
		}
		// eggs hit zero and cake sits under the threshold
		if n := rec.count(events.LowStockEvent); n != 1 {
			t.Errorf("Expected 1 low stock event for eggs, got %d", n)
		}
	})
}

func TestProductionService_FinishRun_DrawsBatchesOldestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		ctx := context.Background()
		if err := b.Store.Products().AdjustStock(ctx, b.Butter.ID, dec("20")); err != nil {
			t.Fatalf("Failed to top up butter: %v", err)
		}
		service := newProductionService(b)

		// 560 cookies need 140 flour: all 120 of FLR-001 and 20 of FLR-002
		result, err := service.Produce(ctx, b.Cookies.ID, dec("560"), "")
		if err != nil {
			t.Fatalf("Produce failed: %v", err)
		}

		var flour *entities.ConsumptionResult
		for i := range result.Consumption {
			if result.Consumption[i].ProductID == b.Flour.ID {
				flour = &result.Consumption[i]
			}
		}
		if flour == nil {
			t.Fatal("Expected flour consumption in result")
		}
		if len(flour.ConsumedFrom) != 2 {
			t.Fatalf("Expected 2 batches drawn, got %d", len(flour.ConsumedFrom))
		}
		if flour.ConsumedFrom[0].BatchNumber != "FLR-001" || !flour.ConsumedFrom[0].Quantity.Equal(dec("120")) {
			t.Errorf("Expected 120 from FLR-001 first, got %s from %s", flour.ConsumedFrom[0].Quantity, flour.ConsumedFrom[0].BatchNumber)
		}
		assertDecimal(t, "second batch draw", "20", flour.ConsumedFrom[1].Quantity)
		assertDecimal(t, "uncovered flour", "0", flour.Uncovered)

		first, _ := b.Store.Batches().Get(ctx, b.FlourBatches[0].ID)
		second, _ := b.Store.Batches().Get(ctx, b.FlourBatches[1].ID)
		assertDecimal(t, "FLR-001 remaining", "0", first.QuantityRemaining)
		assertDecimal(t, "FLR-002 remaining", "60", second.QuantityRemaining)
		if got := stockOf(t, b.Store, b.Flour); !dec(got).Equal(dec("60")) {
			t.Errorf("Expected flour stock 60, got %s", got)
		}

		// butter has no batches, so the whole draw is uncovered but still booked
		for _, c := range result.Consumption {
			if c.ProductID == b.Butter.ID {
				assertDecimal(t, "uncovered butter", "56", c.Uncovered)
			}
		}
	})
}

func TestProductionService_Produce_FractionalQuantities(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		ctx := context.Background()
		shortbread := testhelpers.MustCreateProduct(b.Store, "Shortbread", "FG-SHRT", entities.FinishedGood, "0", "0", nil)
		testhelpers.MustAddBOMLine(b.Store, shortbread, b.Flour, "0.1")
		if err := b.Store.Products().AdjustStock(ctx, b.Flour.ID, dec("-199.3")); err != nil {
			t.Fatalf("Failed to draw flour down: %v", err)
		}
		service := newProductionService(b)

		if _, err := service.Produce(ctx, shortbread.ID, dec("4"), ""); err != nil {
			t.Fatalf("Produce 4 failed: %v", err)
		}
		if got := stockOf(t, b.Store, b.Flour); got != "0.3" {
			t.Fatalf("Expected flour stock 0.3, got %s", got)
		}

		// 3 more need exactly the 0.3 left
		check, err := service.CheckMaterials(ctx, shortbread.ID, dec("3"))
		if err != nil {
			t.Fatalf("CheckMaterials failed: %v", err)
		}
		if !check.OK {
			t.Fatalf("Expected exactly enough flour, got shortages %+v", check.Shortages())
		}
		if _, err := service.Produce(ctx, shortbread.ID, dec("3"), ""); err != nil {
			t.Fatalf("Produce 3 failed: %v", err)
		}
		if got := stockOf(t, b.Store, b.Flour); !dec(got).IsZero() {
			t.Errorf("Expected flour used up, got %s", got)
		}
		if got := stockOf(t, b.Store, shortbread); got != "7" {
			t.Errorf("Expected 7 shortbread, got %s", got)
		}

		first, err := b.Store.Batches().Get(ctx, b.FlourBatches[0].ID)
		if err != nil {
			t.Fatalf("Failed to load FLR-001: %v", err)
		}
		assertDecimal(t, "FLR-001 remaining", "119.3", first.QuantityRemaining)

		if _, err := service.Produce(ctx, shortbread.ID, dec("0.5"), ""); !errors.Is(err, entities.ErrInsufficientStock) {
			t.Errorf("Expected ErrInsufficientStock with no flour left, got %v", err)
		}
	})
}

func TestProductionService_PlanRun_InsufficientMaterials(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newProductionService(b)

	_, err := service.PlanRun(ctx, b.Cake.ID, dec("3"), "")
	if !errors.Is(err, entities.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	var short *InsufficientMaterialsError
	if !errors.As(err, &short) {
		t.Fatalf("Expected InsufficientMaterialsError, got %T", err)
	}
	shortages := short.Check.Shortages()
	if len(shortages) != 1 || shortages[0].MaterialSKU != "RM-EGG" {
		t.Fatalf("Expected eggs to be the only shortage, got %+v", shortages)
	}
	assertDecimal(t, "egg shortage", "4", shortages[0].Shortage)

	runs, _ := service.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Errorf("Expected no run to be recorded, got %d", len(runs))
	}
}

func TestProductionService_PlanRun_Validation(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newProductionService(b)

	tests := []struct {
		name      string
		productID int64
		quantity  string
		wantErr   error
	}{
		{"raw material", b.Flour.ID, "1", entities.ErrValidation},
		{"zero quantity", b.Cake.ID, "0", entities.ErrValidation},
		{"negative quantity", b.Cake.ID, "-1", entities.ErrValidation},
		{"unknown product", 999, "1", entities.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.PlanRun(ctx, tt.productID, dec(tt.quantity), "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProductionService_FinishRun_RequiresStart(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newProductionService(b)

	run, err := service.PlanRun(ctx, b.Cake.ID, dec("1"), "")
	if err != nil {
		t.Fatalf("PlanRun failed: %v", err)
	}
	if _, err := service.FinishRun(ctx, run.ID); !errors.Is(err, entities.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}
	if got := stockOf(t, b.Store, b.Flour); !dec(got).Equal(dec("200")) {
		t.Errorf("Expected flour untouched at 200, got %s", got)
	}
}

func TestProductionService_FinishRun_Concurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		ctx := context.Background()
		service := newProductionService(b)

		run, err := service.PlanRun(ctx, b.Cake.ID, dec("1"), "")
		if err != nil {
			t.Fatalf("PlanRun failed: %v", err)
		}
		if _, err := service.StartRun(ctx, run.ID); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.FinishRun(ctx, run.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, entities.ErrInvalidTransition):
				t.Errorf("Expected ErrInvalidTransition for losers, got %v", err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("Expected exactly one finish to succeed, got %d", succeeded)
		}
		if got := stockOf(t, b.Store, b.Cake); !dec(got).Equal(dec("1")) {
			t.Errorf("Expected 1 cake produced, got %s", got)
		}
		if got := stockOf(t, b.Store, b.Flour); !dec(got).Equal(dec("199.5")) {
			t.Errorf("Expected flour drawn once to 199.5, got %s", got)
		}
	})
}

func TestProductionService_CancelRun(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		ctx := context.Background()
		bus, rec := newBus(t)
		service := newProductionService(b, WithEvents(bus))

		run, err := service.PlanRun(ctx, b.Cookies.ID, dec("10"), "")
		if err != nil {
			t.Fatalf("PlanRun failed: %v", err)
		}
		cancelled, err := service.CancelRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("CancelRun failed: %v", err)
		}
		if cancelled.Status != entities.RunCancelled || cancelled.CancelledAt == nil {
			t.Errorf("Expected cancelled run with timestamp, got %s", cancelled.Status)
		}
		if _, err := service.CancelRun(ctx, run.ID); !errors.Is(err, entities.ErrInvalidTransition) {
			t.Errorf("Expected ErrInvalidTransition on second cancel, got %v", err)
		}
		if _, err := service.StartRun(ctx, run.ID); !errors.Is(err, entities.ErrInvalidTransition) {
			t.Errorf("Expected ErrInvalidTransition starting a cancelled run, got %v", err)
		}

		bus.Wait()
		if n := rec.count(events.RunStatusChangedEvent); n != 2 {
			t.Errorf("Expected status change events for plan and cancel, got %d", n)
		}
		if got := stockOf(t, b.Store, b.Flour); !dec(got).Equal(dec("200")) {
			t.Errorf("Expected flour untouched at 200, got %s", got)
		}
	})
}

func TestProductionService_RecentActivity(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newProductionService(b)

	if _, err := service.Produce(ctx, b.Cookies.ID, dec("4"), ""); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	activity, err := service.RecentActivity(ctx, 2)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(activity) != 2 {
		t.Fatalf("Expected 2 movements, got %d", len(activity))
	}
	for _, a := range activity {
		if a.ProductName == "" || a.Source != entities.SourceProduction {
			t.Errorf("Expected joined production movement, got %+v", a)
		}
	}
}
