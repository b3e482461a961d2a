package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
)

func newCatalogService(b *testhelpers.Bakery, opts ...Option) *CatalogService {
	return NewCatalogService(b.Store, append([]Option{WithClock(testhelpers.Clock)}, opts...)...)
}

func TestCatalogService_Suppliers(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	dairy, err := service.CreateSupplier(ctx, dto.SupplierInput{Name: "Rift Valley Dairy", Email: "sales@rvd.example"})
	if err != nil {
		t.Fatalf("CreateSupplier failed: %v", err)
	}
	if _, err := service.CreateSupplier(ctx, dto.SupplierInput{Name: "Rift Valley Dairy"}); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate name, got %v", err)
	}
	if _, err := service.CreateSupplier(ctx, dto.SupplierInput{Name: "Bad", Email: "nope"}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation for bad email, got %v", err)
	}

	updated, err := service.UpdateSupplier(ctx, dairy.ID, dto.SupplierInput{Name: "Rift Valley Dairy", Phone: "+254 722 000 111"})
	if err != nil {
		t.Fatalf("UpdateSupplier failed: %v", err)
	}
	if updated.Phone != "+254 722 000 111" || updated.Email != "" {
		t.Errorf("Expected phone set and email cleared, got %+v", updated)
	}

	if err := service.DeleteSupplier(ctx, b.Supplier.ID); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting a supplier in use, got %v", err)
	}
	if err := service.DeleteSupplier(ctx, dairy.ID); err != nil {
		t.Errorf("DeleteSupplier failed: %v", err)
	}
	suppliers, _ := service.ListSuppliers(ctx)
	if len(suppliers) != 1 {
		t.Errorf("Expected 1 supplier left, got %d", len(suppliers))
	}
}

func TestCatalogService_CreateProduct_OpeningStock(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	salt, err := service.CreateProduct(ctx, dto.ProductInput{
		Name:      "Sea Salt",
		SKU:       "RM-SLT",
		Type:      entities.RawMaterial,
		Quantity:  dec("15"),
		PricePaid: dec("0.40"),
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	movements, _ := b.Store.Transactions().List(ctx, repositories.TransactionFilter{ProductID: salt.ID})
	if len(movements) != 1 {
		t.Fatalf("Expected an opening stock movement, got %d", len(movements))
	}
	if movements[0].Source != entities.SourceImport || !movements[0].Quantity.Equal(dec("15")) {
		t.Errorf("Unexpected opening movement %+v", movements[0])
	}

	bread, err := service.CreateProduct(ctx, dto.ProductInput{Name: "Bread", SKU: "FG-BRD", Type: entities.FinishedGood, PriceSelling: dec("3")})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	movements, _ = b.Store.Transactions().List(ctx, repositories.TransactionFilter{ProductID: bread.ID})
	if len(movements) != 0 {
		t.Errorf("Expected no movement without opening stock, got %d", len(movements))
	}
}

func TestCatalogService_CreateProduct_Rejects(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)
	missing := int64(77)

	tests := []struct {
		name    string
		input   dto.ProductInput
		wantErr error
	}{
		{"duplicate sku", dto.ProductInput{Name: "Flour 2", SKU: "RM-FLR"}, entities.ErrConflict},
		{"empty name", dto.ProductInput{SKU: "RM-X"}, entities.ErrValidation},
		{"empty sku", dto.ProductInput{Name: "X"}, entities.ErrValidation},
		{"negative stock", dto.ProductInput{Name: "X", SKU: "RM-X", Quantity: dec("-1")}, entities.ErrValidation},
		{"negative price", dto.ProductInput{Name: "X", SKU: "RM-X", PricePaid: dec("-0.01")}, entities.ErrValidation},
		{"unknown supplier", dto.ProductInput{Name: "X", SKU: "RM-X", SupplierID: &missing}, entities.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.CreateProduct(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCatalogService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	eggs, err := service.AdjustStock(ctx, b.Eggs.ID, dto.StockAdjustment{Delta: dec("-3")})
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	assertDecimal(t, "egg stock", "5", eggs.QuantityInStock)

	movements, _ := b.Store.Transactions().List(ctx, repositories.TransactionFilter{ProductID: b.Eggs.ID})
	if len(movements) != 1 || movements[0].Type != entities.StockOut || movements[0].Notes != "Manual adjustment" {
		t.Errorf("Expected a manual out adjustment, got %+v", movements)
	}
	assertDecimal(t, "movement quantity", "3", movements[0].Quantity)

	if _, err := service.AdjustStock(ctx, b.Eggs.ID, dto.StockAdjustment{Delta: dec("-6")}); !errors.Is(err, entities.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock, got %v", err)
	}
	if _, err := service.AdjustStock(ctx, b.Eggs.ID, dto.StockAdjustment{}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation for zero delta, got %v", err)
	}
	movements, _ = b.Store.Transactions().List(ctx, repositories.TransactionFilter{ProductID: b.Eggs.ID})
	if len(movements) != 1 {
		t.Errorf("Expected failed adjustments to leave no movement, got %d", len(movements))
	}
}

func TestCatalogService_BOMLines(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	tests := []struct {
		name    string
		input   dto.BOMLineInput
		wantErr error
	}{
		{"raw into raw", dto.BOMLineInput{FinishedProductID: b.Flour.ID, RawMaterialID: b.Sugar.ID, QuantityRequired: dec("1")}, entities.ErrValidation},
		{"finished as material", dto.BOMLineInput{FinishedProductID: b.Cake.ID, RawMaterialID: b.Cookies.ID, QuantityRequired: dec("1")}, entities.ErrValidation},
		{"duplicate pair", dto.BOMLineInput{FinishedProductID: b.Cake.ID, RawMaterialID: b.Flour.ID, QuantityRequired: dec("1")}, entities.ErrConflict},
		{"zero quantity", dto.BOMLineInput{FinishedProductID: b.Cookies.ID, RawMaterialID: b.Sugar.ID}, entities.ErrValidation},
		{"self reference", dto.BOMLineInput{FinishedProductID: b.Cake.ID, RawMaterialID: b.Cake.ID, QuantityRequired: dec("1")}, entities.ErrValidation},
		{"unknown material", dto.BOMLineInput{FinishedProductID: b.Cake.ID, RawMaterialID: 999, QuantityRequired: dec("1")}, entities.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.AddBOMLine(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	line, err := service.AddBOMLine(ctx, dto.BOMLineInput{FinishedProductID: b.Cookies.ID, RawMaterialID: b.Sugar.ID, QuantityRequired: dec("0.05")})
	if err != nil {
		t.Fatalf("AddBOMLine failed: %v", err)
	}
	if _, err := service.UpdateBOMLine(ctx, line.ID, dec("0.08"), dec("1")); err != nil {
		t.Fatalf("UpdateBOMLine failed: %v", err)
	}
	entries, err := service.BOMForProduct(ctx, b.Cookies.ID)
	if err != nil {
		t.Fatalf("BOMForProduct failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 cookie lines, got %d", len(entries))
	}
	for _, e := range entries {
		if e.MaterialSKU == "" || e.ProductName != "Butter Cookies" {
			t.Errorf("Expected joined names, got %+v", e)
		}
	}
	if err := service.DeleteBOMLine(ctx, line.ID); err != nil {
		t.Errorf("DeleteBOMLine failed: %v", err)
	}
}

func TestCatalogService_ProductCost(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	cost, err := service.ProductCost(ctx, b.Cake.ID)
	if err != nil {
		t.Fatalf("ProductCost failed: %v", err)
	}
	assertDecimal(t, "unit cost", "3.17", cost.UnitCost)
	assertDecimal(t, "margin", "9.33", cost.Margin)
	if len(cost.Lines) != 4 {
		t.Errorf("Expected 4 lines, got %d", len(cost.Lines))
	}

	products, err := service.Manufacturable(ctx)
	if err != nil {
		t.Fatalf("Manufacturable failed: %v", err)
	}
	if len(products) != 2 || products[0].SKU != "FG-COOK" || products[1].SKU != "FG-CAKE" {
		t.Fatalf("Expected cookies then cake, got %+v", products)
	}
	assertDecimal(t, "cookie unit cost", "0.95", products[0].UnitCost)
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	b := testhelpers.BuildBakery()
	service := newCatalogService(b)

	if err := service.DeleteProduct(ctx, b.Flour.ID); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting a product in a BOM, got %v", err)
	}
	orphan, err := service.CreateProduct(ctx, dto.ProductInput{Name: "Yeast", SKU: "RM-YST", Type: entities.RawMaterial})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if err := service.DeleteProduct(ctx, orphan.ID); err != nil {
		t.Errorf("DeleteProduct failed: %v", err)
	}
	if _, err := service.GetProduct(ctx, orphan.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
