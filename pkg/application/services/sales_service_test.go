package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/pdf"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
)

// bakeryWithCakes stocks five cakes so there is something to sell
func bakeryWithCakes(t *testing.T) *testhelpers.Bakery {
	t.Helper()
	return stockCakes(t, testhelpers.BuildBakery())
}

func stockCakes(t *testing.T, b *testhelpers.Bakery) *testhelpers.Bakery {
	t.Helper()
	if err := b.Store.Products().AdjustStock(context.Background(), b.Cake.ID, dec("5")); err != nil {
		t.Fatalf("Failed to stock cakes: %v", err)
	}
	return b
}

func newSalesService(b *testhelpers.Bakery, opts ...Option) *SalesService {
	renderer := pdf.NewInvoiceRenderer(pdf.Company{Name: "Test Bakery", City: "Nairobi"})
	return NewSalesService(b.Store, renderer, append([]Option{WithClock(testhelpers.Clock)}, opts...)...)
}

func cakeSale(b *testhelpers.Bakery, qty string) dto.SaleInput {
	return dto.SaleInput{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		PaymentMethod: "Cash",
		Items:         []dto.SaleItemInput{{ProductID: b.Cake.ID, Quantity: dec(qty)}},
	}
}

func TestSalesService_CreateSale(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		stockCakes(t, b)
		ctx := context.Background()
		service := newSalesService(b)

		sale, err := service.CreateSale(ctx, cakeSale(b, "2"))
		if err != nil {
			t.Fatalf("CreateSale failed: %v", err)
		}
		if sale.InvoiceNumber != "INV-20260302-090000" {
			t.Errorf("Unexpected invoice number %s", sale.InvoiceNumber)
		}
		assertDecimal(t, "total", "25.00", sale.TotalAmount)
		assertDecimal(t, "unit price", "12.50", sale.Items[0].UnitPrice)
		if sale.Items[0].ProductSKU != "FG-CAKE" {
			t.Errorf("Expected item sku FG-CAKE, got %s", sale.Items[0].ProductSKU)
		}

		cake, _ := b.Store.Products().Get(ctx, b.Cake.ID)
		assertDecimal(t, "cake stock", "3", cake.QuantityInStock)

		movements, _ := b.Store.Transactions().List(ctx, repositories.TransactionFilter{Source: entities.SourceSale})
		if len(movements) != 1 || movements[0].Type != entities.StockOut {
			t.Fatalf("Expected one out movement for the sale, got %d", len(movements))
		}
		if movements[0].Notes != "Sold on invoice INV-20260302-090000" {
			t.Errorf("Unexpected notes %q", movements[0].Notes)
		}
	})
}

func TestSalesService_CreateSale_PriceOverride(t *testing.T) {
	ctx := context.Background()
	b := bakeryWithCakes(t)
	service := newSalesService(b)

	price := dec("10")
	in := cakeSale(b, "3")
	in.Items[0].UnitPrice = &price
	sale, err := service.CreateSale(ctx, in)
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	assertDecimal(t, "total", "30", sale.TotalAmount)
}

func TestSalesService_CreateSale_Rejects(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		stockCakes(t, b)
		ctx := context.Background()
		service := newSalesService(b)

		tests := []struct {
			name    string
			input   func() dto.SaleInput
			wantErr error
		}{
			{"more than in stock", func() dto.SaleInput { return cakeSale(b, "6") }, entities.ErrInsufficientStock},
			{"raw material", func() dto.SaleInput {
				in := cakeSale(b, "1")
				in.Items[0].ProductID = b.Flour.ID
				return in
			}, entities.ErrValidation},
			{"no customer", func() dto.SaleInput {
				in := cakeSale(b, "1")
				in.CustomerName = ""
				return in
			}, entities.ErrValidation},
			{"no items", func() dto.SaleInput {
				in := cakeSale(b, "1")
				in.Items = nil
				return in
			}, entities.ErrValidation},
			{"unknown payment method", func() dto.SaleInput {
				in := cakeSale(b, "1")
				in.PaymentMethod = "Barter"
				return in
			}, entities.ErrValidation},
			{"unknown product", func() dto.SaleInput {
				in := cakeSale(b, "1")
				in.Items[0].ProductID = 999
				return in
			}, entities.ErrNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := service.CreateSale(ctx, tt.input()); !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
			})
		}

		cake, _ := b.Store.Products().Get(ctx, b.Cake.ID)
		assertDecimal(t, "cake stock", "5", cake.QuantityInStock)
		sales, _ := service.RecentSales(ctx, 0)
		if len(sales) != 0 {
			t.Errorf("Expected no sales recorded, got %d", len(sales))
		}
	})
}

func TestSalesService_CreateSale_RetriesInvoiceNumber(t *testing.T) {
	forEachStore(t, func(t *testing.T, b *testhelpers.Bakery) {
		stockCakes(t, b)
		ctx := context.Background()
		service := newSalesService(b)

		var got []string
		for i := 0; i < 3; i++ {
			sale, err := service.CreateSale(ctx, cakeSale(b, "1"))
			if err != nil {
				t.Fatalf("CreateSale %d failed: %v", i, err)
			}
			got = append(got, sale.InvoiceNumber)
		}

		want := []string{"INV-20260302-090000", "INV-20260302-090000-2", "INV-20260302-090000-3"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Invoice numbers mismatch (-want +got):\n%s", diff)
		}
		cake, _ := b.Store.Products().Get(ctx, b.Cake.ID)
		assertDecimal(t, "cake stock", "2", cake.QuantityInStock)
	})
}

func TestSalesService_Summary(t *testing.T) {
	ctx := context.Background()
	b := bakeryWithCakes(t)
	c := cache.NewMemoryCache(cache.DefaultConfig())
	service := newSalesService(b, WithCache(c))

	if _, err := service.CreateSale(ctx, cakeSale(b, "2")); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	summary, err := service.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Count != 1 || summary.TodayCount != 1 {
		t.Errorf("Expected 1 sale today, got %d total / %d today", summary.Count, summary.TodayCount)
	}
	assertDecimal(t, "revenue", "25", summary.Revenue)
	assertDecimal(t, "average", "25", summary.Average)

	if ok, _ := c.Exists(ctx, cache.SalesSummaryKey); !ok {
		t.Error("Expected summary to be cached")
	}
}

func TestSalesService_Summary_UsesLocalDay(t *testing.T) {
	ctx := context.Background()
	b := bakeryWithCakes(t)
	nairobi := time.FixedZone("EAT", 3*60*60)
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, nairobi)
	service := newSalesService(b, WithClock(func() time.Time { return now }))

	if _, err := service.CreateSale(ctx, cakeSale(b, "1")); err != nil {
		t.Fatalf("CreateSale late evening failed: %v", err)
	}
	// 01:30 local is still 22:30 the previous day in UTC
	now = time.Date(2026, 3, 2, 1, 30, 0, 0, nairobi)
	sale, err := service.CreateSale(ctx, cakeSale(b, "2"))
	if err != nil {
		t.Fatalf("CreateSale after midnight failed: %v", err)
	}
	if sale.InvoiceNumber != "INV-20260302-013000" {
		t.Errorf("Expected invoice dated by local time, got %s", sale.InvoiceNumber)
	}

	summary, err := service.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Count != 2 || summary.TodayCount != 1 {
		t.Errorf("Expected 2 sales with 1 today, got %d / %d", summary.Count, summary.TodayCount)
	}
	assertDecimal(t, "today's revenue", "25", summary.TodayRevenue)
}

func TestSalesService_Invoice(t *testing.T) {
	ctx := context.Background()
	b := bakeryWithCakes(t)
	service := newSalesService(b)

	sale, err := service.CreateSale(ctx, cakeSale(b, "1"))
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	var buf bytes.Buffer
	got, err := service.Invoice(ctx, sale.ID, &buf)
	if err != nil {
		t.Fatalf("Invoice failed: %v", err)
	}
	if got.InvoiceNumber != sale.InvoiceNumber {
		t.Errorf("Expected invoice %s, got %s", sale.InvoiceNumber, got.InvoiceNumber)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("Expected PDF output")
	}

	if _, err := service.Invoice(ctx, 999, &buf); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
