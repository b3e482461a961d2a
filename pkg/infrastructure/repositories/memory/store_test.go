package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

func mustProduct(t *testing.T, s *Store, name string, sku entities.SKU, typ entities.ProductType, stock int64) *entities.Product {
	t.Helper()
	p, err := entities.NewProduct(name, sku, typ)
	if err != nil {
		t.Fatalf("Failed to build product: %v", err)
	}
	p.QuantityInStock = decimal.NewFromInt(stock)
	if err := s.Products().Create(context.Background(), p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}
	return p
}

func TestProductRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 10)

	if flour.ID == 0 {
		t.Fatal("Expected id to be assigned")
	}

	got, err := s.Products().GetBySKU(ctx, "RM-FLR")
	if err != nil {
		t.Fatalf("Failed to get product: %v", err)
	}
	if got.Name != "Flour" {
		t.Errorf("Expected name Flour, got %s", got.Name)
	}

	_, err = s.Products().Get(ctx, 999)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	dup, _ := entities.NewProduct("Other", "RM-FLR", entities.RawMaterial)
	if err := s.Products().Create(ctx, dup); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate sku, got %v", err)
	}
}

func TestProductRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	mustProduct(t, s, "Sugar", "RM-SUG", entities.RawMaterial, 1)
	mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 1)
	mustProduct(t, s, "Cake", "FG-CAKE", entities.FinishedGood, 0)

	raw := entities.RawMaterial
	products, err := s.Products().List(ctx, repositories.ProductFilter{Type: &raw})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 raw materials, got %d", len(products))
	}
	if products[0].Name != "Flour" || products[1].Name != "Sugar" {
		t.Errorf("Expected products ordered by name, got %s, %s", products[0].Name, products[1].Name)
	}
}

func TestProductRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 10)

	tests := []struct {
		name        string
		delta       int64
		expectStock int64
		expectErr   error
	}{
		{"receive", 5, 15, nil},
		{"consume", -15, 0, nil},
		{"overdraw", -1, 0, entities.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Products().AdjustStock(ctx, flour.ID, decimal.NewFromInt(tt.delta))
			if !errors.Is(err, tt.expectErr) {
				t.Fatalf("Expected error %v, got %v", tt.expectErr, err)
			}
			got, _ := s.Products().Get(ctx, flour.ID)
			if !got.QuantityInStock.Equal(decimal.NewFromInt(tt.expectStock)) {
				t.Errorf("Expected stock %d, got %s", tt.expectStock, got.QuantityInStock)
			}
		})
	}
}

func TestProductRepository_DeleteReferenced(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	cake := mustProduct(t, s, "Cake", "FG-CAKE", entities.FinishedGood, 0)
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 10)

	line, _ := entities.NewBOMLine(cake.ID, flour.ID, decimal.NewFromInt(2), decimal.Zero)
	if err := s.BOM().Create(ctx, line); err != nil {
		t.Fatalf("Failed to create BOM line: %v", err)
	}

	if err := s.Products().Delete(ctx, flour.ID); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting referenced material, got %v", err)
	}

	dup, _ := entities.NewBOMLine(cake.ID, flour.ID, decimal.NewFromInt(3), decimal.Zero)
	if err := s.BOM().Create(ctx, dup); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate BOM pair, got %v", err)
	}

	if err := s.BOM().Delete(ctx, line.ID); err != nil {
		t.Fatalf("Failed to delete BOM line: %v", err)
	}
	if err := s.Products().Delete(ctx, flour.ID); err != nil {
		t.Errorf("Expected unreferenced product to delete, got %v", err)
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 10)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx repositories.Store) error {
		if err := tx.Products().AdjustStock(ctx, flour.ID, decimal.NewFromInt(-4)); err != nil {
			return err
		}
		out, _ := entities.NewTransaction(flour.ID, entities.StockOut, decimal.NewFromInt(4), decimal.Zero, entities.SourceAdjustment, "")
		if err := tx.Transactions().Create(ctx, out); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	got, _ := s.Products().Get(ctx, flour.ID)
	if !got.QuantityInStock.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected stock to roll back to 10, got %s", got.QuantityInStock)
	}
	txs, _ := s.Transactions().List(ctx, repositories.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("Expected no transactions after rollback, got %d", len(txs))
	}
}

func TestStore_WithinTxConcurrentWithdrawals(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(tx repositories.Store) error {
				return tx.Products().AdjustStock(ctx, flour.ID, decimal.NewFromInt(-1))
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("Expected exactly 10 withdrawals to succeed, got %d", succeeded)
	}
	got, _ := s.Products().Get(ctx, flour.ID)
	if !got.QuantityInStock.IsZero() {
		t.Errorf("Expected stock 0, got %s", got.QuantityInStock)
	}
}

func TestBatchRepository_OrderingAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	flour := mustProduct(t, s, "Flour", "RM-FLR", entities.RawMaterial, 0)
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, number := range []string{"FLR-002", "flr-001", "SUG-009"} {
		b, err := entities.NewBatch(flour.ID, number, decimal.NewFromInt(10), "Amina", entities.QualityCheck{}, jan.AddDate(0, 0, 2-i))
		if err != nil {
			t.Fatalf("Failed to build batch: %v", err)
		}
		if err := s.Batches().Create(ctx, b); err != nil {
			t.Fatalf("Failed to save batch: %v", err)
		}
	}

	oldest, _ := s.Batches().ListForProduct(ctx, flour.ID)
	if oldest[0].BatchNumber != "SUG-009" {
		t.Errorf("Expected oldest batch first, got %s", oldest[0].BatchNumber)
	}

	found, _ := s.Batches().Search(ctx, "FLR")
	if len(found) != 2 {
		t.Errorf("Expected case-insensitive search to find 2 batches, got %d", len(found))
	}

	dup, _ := entities.NewBatch(flour.ID, "FLR-002", decimal.NewFromInt(1), "Amina", entities.QualityCheck{}, jan)
	if err := s.Batches().Create(ctx, dup); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate batch number, got %v", err)
	}

	if err := s.Batches().Consume(ctx, oldest[0].ID, decimal.NewFromInt(11)); !errors.Is(err, entities.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock overdrawing a batch, got %v", err)
	}
}

func TestProductionRepository_Transition(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	cake := mustProduct(t, s, "Cake", "FG-CAKE", entities.FinishedGood, 0)

	run, _ := entities.NewProductionRun(cake.ID, "Cake", decimal.NewFromInt(1), "", []entities.RunMaterial{{RawMaterialID: 2}})
	if err := s.Production().Create(ctx, run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	now := time.Now()
	if err := s.Production().Transition(ctx, run.ID, entities.RunChecked, entities.RunInProgress, now); err != nil {
		t.Fatalf("Expected start to succeed: %v", err)
	}
	err := s.Production().Transition(ctx, run.ID, entities.RunChecked, entities.RunInProgress, now)
	if !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on stale start, got %v", err)
	}

	got, _ := s.Production().Get(ctx, run.ID)
	if got.Status != entities.RunInProgress || got.StartedAt == nil {
		t.Errorf("Expected in-progress run with start time, got %s", got.Status)
	}
}
