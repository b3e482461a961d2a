package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/memory"
)

// Now is the fixed wall clock of the bakery scenario
var Now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Clock returns Now; pass it to services.WithClock
func Clock() time.Time {
	return Now
}

// Dec parses a decimal literal, panicking on bad input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Bakery is a small catalog: four raw materials, two finished goods and their BOMs.
//
//	Cake    = 0.5 flour + 0.3 sugar + 0.2 butter + 4 eggs  (unit cost 3.17)
//	Cookies = 0.25 flour + 0.1 butter                      (unit cost 0.95)
//
// Flour stock is held in two accepted batches (120 received Jan 5, 80 received Feb 1,
// the second expiring Mar 20). The other materials carry stock without batches.
type Bakery struct {
	Store    repositories.TxStore
	Supplier *entities.Supplier

	Flour  *entities.Product
	Sugar  *entities.Product
	Butter *entities.Product
	Eggs   *entities.Product

	Cake    *entities.Product
	Cookies *entities.Product

	FlourBatches []*entities.Batch
}

// BuildBakery builds the bakery scenario in a fresh memory store
func BuildBakery() *Bakery {
	return BuildBakeryIn(memory.NewStore())
}

// BuildBakeryIn builds the bakery scenario in an empty store
func BuildBakeryIn(store repositories.TxStore) *Bakery {
	ctx := context.Background()
	b := &Bakery{Store: store}

	supplier, err := entities.NewSupplier("Mombasa Mills", "Amina Otieno", "+254 700 111 222", "orders@mombasamills.example")
	if err != nil {
		panic(err)
	}
	mustDo(store.Suppliers().Create(ctx, supplier))
	b.Supplier = supplier

	b.Flour = MustCreateProduct(store, "Wheat Flour", "RM-FLR", entities.RawMaterial, "200", "1.20", &supplier.ID)
	b.Sugar = MustCreateProduct(store, "Cane Sugar", "RM-SUG", entities.RawMaterial, "120", "0.90", &supplier.ID)
	b.Butter = MustCreateProduct(store, "Butter", "RM-BUT", entities.RawMaterial, "40", "6.50", nil)
	b.Eggs = MustCreateProduct(store, "Eggs", "RM-EGG", entities.RawMaterial, "8", "0.25", nil)

	b.Cake = MustCreateProduct(store, "Vanilla Cake", "FG-CAKE", entities.FinishedGood, "0", "0", nil)
	b.Cake.PriceSelling = Dec("12.50")
	mustDo(store.Products().Update(ctx, b.Cake))
	b.Cookies = MustCreateProduct(store, "Butter Cookies", "FG-COOK", entities.FinishedGood, "0", "0", nil)
	b.Cookies.PriceSelling = Dec("4.00")
	mustDo(store.Products().Update(ctx, b.Cookies))

	MustAddBOMLine(store, b.Cake, b.Flour, "0.5")
	MustAddBOMLine(store, b.Cake, b.Sugar, "0.3")
	MustAddBOMLine(store, b.Cake, b.Butter, "0.2")
	MustAddBOMLine(store, b.Cake, b.Eggs, "4")
	MustAddBOMLine(store, b.Cookies, b.Flour, "0.25")
	MustAddBOMLine(store, b.Cookies, b.Butter, "0.1")

	expiry := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	b.FlourBatches = []*entities.Batch{
		MustAddBatch(store, b.Flour, "FLR-001", "120", time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), nil),
		MustAddBatch(store, b.Flour, "FLR-002", "80", time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), &expiry),
	}
	return b
}

// MustCreateProduct stores a product with the given stock and price; for raw materials
// price is the price paid, for finished goods it is ignored
func MustCreateProduct(store repositories.Store, name, sku string, productType entities.ProductType, qty, price string, supplierID *int64) *entities.Product {
	p, err := entities.NewProduct(name, entities.SKU(sku), productType)
	if err != nil {
		panic(err)
	}
	p.QuantityInStock = Dec(qty)
	if productType == entities.RawMaterial {
		p.PricePaid = Dec(price)
	}
	p.SupplierID = supplierID
	p.CreatedAt = Now
	mustDo(store.Products().Create(context.Background(), p))
	return p
}

// MustAddBOMLine links product to material with qty per unit
func MustAddBOMLine(store repositories.Store, product, material *entities.Product, qty string) *entities.BOMLine {
	line, err := entities.NewBOMLine(product.ID, material.ID, Dec(qty), decimal.Zero)
	if err != nil {
		panic(err)
	}
	mustDo(store.BOM().Create(context.Background(), line))
	return line
}

// MustAddBatch records an accepted batch without touching product stock
func MustAddBatch(store repositories.Store, material *entities.Product, number, qty string, received time.Time, expiry *time.Time) *entities.Batch {
	batch, err := entities.NewBatch(material.ID, number, Dec(qty), "Test Receiver", AcceptedCheck(), received)
	if err != nil {
		panic(err)
	}
	batch.ExpirationDate = expiry
	batch.PricePerUnit = material.PricePaid
	batch.SupplierID = material.SupplierID
	batch.CreatedAt = received
	mustDo(store.Batches().Create(context.Background(), batch))
	return batch
}

// AcceptedCheck is a quality check with every criterion acceptable
func AcceptedCheck() entities.QualityCheck {
	return entities.QualityCheck{
		Color:             entities.CheckAcceptable,
		Packaging:         entities.CheckAcceptable,
		ShelfLife:         entities.CheckAcceptable,
		Weight:            entities.CheckAcceptable,
		COA:               entities.CheckAcceptable,
		SealIntegrity:     entities.CheckAcceptable,
		Labelling:         entities.CheckAcceptable,
		StorageConditions: entities.CheckAcceptable,
		OverallStatus:     entities.QCAccepted,
	}
}

// RejectedCheck fails the seal and packaging checks
func RejectedCheck() entities.QualityCheck {
	qc := AcceptedCheck()
	qc.SealIntegrity = entities.CheckNotAcceptable
	qc.Packaging = entities.CheckNotAcceptable
	qc.OverallStatus = entities.QCRejected
	return qc
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
