package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// CatalogService manages suppliers, products and bills of materials
type CatalogService struct {
	deps
	validator *domain.BOMValidator
	costing   *domain.CostCalculator
}

// NewCatalogService creates a catalog service over store
func NewCatalogService(store repositories.TxStore, opts ...Option) *CatalogService {
	return &CatalogService{
		deps:      newDeps(store, "catalog", opts),
		validator: domain.NewBOMValidator(),
		costing:   domain.NewCostCalculator(),
	}
}

// ListSuppliers returns every supplier ordered by name
func (s *CatalogService) ListSuppliers(ctx context.Context) ([]*entities.Supplier, error) {
	return s.store.Suppliers().List(ctx)
}

func (s *CatalogService) GetSupplier(ctx context.Context, id int64) (*entities.Supplier, error) {
	return s.store.Suppliers().Get(ctx, id)
}

// CreateSupplier validates and stores a new supplier
func (s *CatalogService) CreateSupplier(ctx context.Context, in dto.SupplierInput) (*entities.Supplier, error) {
	supplier, err := entities.NewSupplier(in.Name, in.Contact, in.Phone, in.Email)
	if err != nil {
		return nil, err
	}
	supplier.RawMaterials = strings.TrimSpace(in.RawMaterials)
	supplier.CategoryCodes = strings.TrimSpace(in.CategoryCodes)
	supplier.CreatedAt = s.now().UTC()

	if err := s.store.Suppliers().Create(ctx, supplier); err != nil {
		return nil, err
	}
	s.logger.Info("supplier created", zap.Int64("supplier_id", supplier.ID), zap.String("name", supplier.Name))
	s.publish(events.NewCatalogChangedEvent("supplier", supplier.ID, events.ActionCreated))
	return supplier, nil
}

// UpdateSupplier replaces the editable fields of a supplier
func (s *CatalogService) UpdateSupplier(ctx context.Context, id int64, in dto.SupplierInput) (*entities.Supplier, error) {
	supplier, err := s.store.Suppliers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	supplier.Name = strings.TrimSpace(in.Name)
	supplier.Contact = strings.TrimSpace(in.Contact)
	supplier.Phone = strings.TrimSpace(in.Phone)
	supplier.Email = strings.TrimSpace(in.Email)
	supplier.RawMaterials = strings.TrimSpace(in.RawMaterials)
	supplier.CategoryCodes = strings.TrimSpace(in.CategoryCodes)
	if err := supplier.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Suppliers().Update(ctx, supplier); err != nil {
		return nil, err
	}
	s.publish(events.NewCatalogChangedEvent("supplier", id, events.ActionUpdated))
	return supplier, nil
}

// DeleteSupplier removes a supplier no product or batch refers to
func (s *CatalogService) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.store.Suppliers().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("supplier deleted", zap.Int64("supplier_id", id))
	s.publish(events.NewCatalogChangedEvent("supplier", id, events.ActionDeleted))
	return nil
}

// ListProducts returns products matching filter ordered by name
func (s *CatalogService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	return s.store.Products().List(ctx, filter)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*entities.Product, error) {
	return s.store.Products().Get(ctx, id)
}

func (s *CatalogService) GetProductBySKU(ctx context.Context, sku entities.SKU) (*entities.Product, error) {
	return s.store.Products().GetBySKU(ctx, sku)
}

// CreateProduct stores a raw material or finished product.
// Opening stock is booked as an import transaction so the movement log balances.
func (s *CatalogService) CreateProduct(ctx context.Context, in dto.ProductInput) (*entities.Product, error) {
	product, err := s.buildProduct(ctx, in)
	if err != nil {
		return nil, err
	}

	var opening *entities.Transaction
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var txErr error
		opening, txErr = createProduct(ctx, tx, product, s.now())
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", string(product.SKU)),
		zap.Stringer("type", product.Type))
	s.publish(events.NewCatalogChangedEvent("product", product.ID, events.ActionCreated))
	if opening != nil {
		s.publish(s.stockEvents(opening, product)...)
	}
	return product, nil
}

func (s *CatalogService) buildProduct(ctx context.Context, in dto.ProductInput) (*entities.Product, error) {
	product, err := entities.NewProduct(in.Name, in.SKU, in.Type)
	if err != nil {
		return nil, err
	}
	product.Category = strings.TrimSpace(in.Category)
	product.CategoryCode = strings.TrimSpace(in.CategoryCode)
	product.QuantityInStock = in.Quantity
	product.PricePaid = in.PricePaid
	product.PriceSelling = in.PriceSelling
	product.SupplierID = in.SupplierID
	product.CreatedAt = s.now().UTC()
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireSupplier(ctx, in.SupplierID); err != nil {
		return nil, err
	}
	return product, nil
}

// createProduct inserts product and books its opening stock, if any
func createProduct(ctx context.Context, tx repositories.Store, product *entities.Product, at time.Time) (*entities.Transaction, error) {
	if err := tx.Products().Create(ctx, product); err != nil {
		return nil, err
	}
	if !product.QuantityInStock.IsPositive() {
		return nil, nil
	}
	opening, err := entities.NewTransaction(product.ID, entities.StockIn, product.QuantityInStock, product.PricePaid, entities.SourceImport, "Opening stock")
	if err != nil {
		return nil, err
	}
	opening.Date = at.UTC()
	if err := tx.Transactions().Create(ctx, opening); err != nil {
		return nil, err
	}
	return opening, nil
}

func (s *CatalogService) requireSupplier(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.Suppliers().Get(ctx, *id); err != nil {
		return fmt.Errorf("supplier %d: %w", *id, err)
	}
	return nil
}

// UpdateProduct replaces master data; stock only moves through transactions
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in dto.ProductInput) (*entities.Product, error) {
	product, err := s.store.Products().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = strings.TrimSpace(in.Name)
	product.SKU = entities.SKU(strings.TrimSpace(string(in.SKU)))
	product.Category = strings.TrimSpace(in.Category)
	product.CategoryCode = strings.TrimSpace(in.CategoryCode)
	product.PricePaid = in.PricePaid
	product.PriceSelling = in.PriceSelling
	product.SupplierID = in.SupplierID
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireSupplier(ctx, in.SupplierID); err != nil {
		return nil, err
	}
	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}
	s.publish(events.NewCatalogChangedEvent("product", id, events.ActionUpdated))
	return product, nil
}

// DeleteProduct removes a product that nothing refers to
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.Int64("product_id", id))
	s.publish(events.NewCatalogChangedEvent("product", id, events.ActionDeleted))
	return nil
}

// AdjustStock books a manual correction and its adjustment transaction
func (s *CatalogService) AdjustStock(ctx context.Context, id int64, adj dto.StockAdjustment) (*entities.Product, error) {
	if adj.Delta.IsZero() {
		return nil, entities.Invalidf("adjustment cannot be zero")
	}
	txType := entities.StockIn
	if adj.Delta.IsNegative() {
		txType = entities.StockOut
	}

	var product *entities.Product
	var movement *entities.Transaction
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if err := tx.Products().AdjustStock(ctx, id, adj.Delta); err != nil {
			return err
		}
		var err error
		if product, err = tx.Products().Get(ctx, id); err != nil {
			return err
		}
		notes := strings.TrimSpace(adj.Notes)
		if notes == "" {
			notes = "Manual adjustment"
		}
		movement, err = entities.NewTransaction(id, txType, adj.Delta.Abs(), product.PricePaid, entities.SourceAdjustment, notes)
		if err != nil {
			return err
		}
		movement.Date = s.now().UTC()
		return tx.Transactions().Create(ctx, movement)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted", zap.Int64("product_id", id), zap.Stringer("delta", adj.Delta))
	s.publish(s.stockEvents(movement, product)...)
	return product, nil
}

// AddBOMLine validates a line against the products and the product's existing BOM, then stores it
func (s *CatalogService) AddBOMLine(ctx context.Context, in dto.BOMLineInput) (*entities.BOMLine, error) {
	line, err := entities.NewBOMLine(in.FinishedProductID, in.RawMaterialID, in.QuantityRequired, in.ProductVolume)
	if err != nil {
		return nil, err
	}
	if err := s.checkLine(ctx, s.store, *line); err != nil {
		return nil, err
	}
	if err := s.store.BOM().Create(ctx, line); err != nil {
		return nil, err
	}
	s.logger.Info("bom line added",
		zap.Int64("finished_product_id", line.FinishedProductID),
		zap.Int64("raw_material_id", line.RawMaterialID),
		zap.Stringer("quantity", line.QuantityRequired))
	s.publish(events.NewCatalogChangedEvent("bom", line.ID, events.ActionCreated))
	return line, nil
}

func (s *CatalogService) checkLine(ctx context.Context, store repositories.Store, line entities.BOMLine) error {
	return checkBOMLine(ctx, store, s.validator, line)
}

// checkBOMLine loads both ends of line and validates it against the product's stored lines
func checkBOMLine(ctx context.Context, store repositories.Store, validator *domain.BOMValidator, line entities.BOMLine) error {
	products := make(map[int64]*entities.Product, 2)
	for _, id := range []int64{line.FinishedProductID, line.RawMaterialID} {
		p, err := store.Products().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("product %d: %w", id, err)
		}
		products[id] = p
	}
	existing, err := store.BOM().ListForProduct(ctx, line.FinishedProductID)
	if err != nil {
		return err
	}
	return validator.ValidateNewLine(line, existing, products)
}

// UpdateBOMLine changes the quantities of a line
func (s *CatalogService) UpdateBOMLine(ctx context.Context, id int64, quantity, volume decimal.Decimal) (*entities.BOMLine, error) {
	line, err := s.store.BOM().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	line.QuantityRequired = quantity
	line.ProductVolume = volume
	if err := line.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.BOM().Update(ctx, line); err != nil {
		return nil, err
	}
	s.publish(events.NewCatalogChangedEvent("bom", id, events.ActionUpdated))
	return line, nil
}

func (s *CatalogService) DeleteBOMLine(ctx context.Context, id int64) error {
	if err := s.store.BOM().Delete(ctx, id); err != nil {
		return err
	}
	s.publish(events.NewCatalogChangedEvent("bom", id, events.ActionDeleted))
	return nil
}

// ListBOM returns every line joined with product and material names
func (s *CatalogService) ListBOM(ctx context.Context) ([]entities.BOMEntry, error) {
	lines, err := s.store.BOM().List(ctx)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, lines)
}

// BOMForProduct returns the joined lines of one finished product
func (s *CatalogService) BOMForProduct(ctx context.Context, productID int64) ([]entities.BOMEntry, error) {
	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, err
	}
	lines, err := s.store.BOM().ListForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, lines)
}

func (s *CatalogService) entries(ctx context.Context, lines []*entities.BOMLine) ([]entities.BOMEntry, error) {
	products, err := productIndex(ctx, s.store)
	if err != nil {
		return nil, err
	}
	out := make([]entities.BOMEntry, 0, len(lines))
	for _, line := range lines {
		entry := entities.BOMEntry{BOMLine: *line}
		if p, ok := products[line.FinishedProductID]; ok {
			entry.ProductName = p.Name
			entry.ProductSKU = p.SKU
		}
		if m, ok := products[line.RawMaterialID]; ok {
			entry.MaterialName = m.Name
			entry.MaterialSKU = m.SKU
			entry.MaterialPrice = m.PricePaid
			entry.MaterialInStock = m.QuantityInStock
		}
		out = append(out, entry)
	}
	return out, nil
}

// ProductCost rolls up the BOM of a finished product at current purchase prices
func (s *CatalogService) ProductCost(ctx context.Context, productID int64) (*dto.ProductCost, error) {
	product, err := s.store.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	entries, err := s.BOMForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	unitCost := decimal.Zero
	for _, e := range entries {
		unitCost = unitCost.Add(e.QuantityRequired.Mul(e.MaterialPrice))
	}
	return &dto.ProductCost{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		UnitCost:  unitCost,
		Margin:    product.PriceSelling.Sub(unitCost),
		Lines:     entries,
	}, nil
}

// Manufacturable lists finished products that have a BOM, ordered by name
func (s *CatalogService) Manufacturable(ctx context.Context) ([]dto.ManufacturableProduct, error) {
	return manufacturable(ctx, s.store, s.costing)
}

func manufacturable(ctx context.Context, store repositories.Store, costing *domain.CostCalculator) ([]dto.ManufacturableProduct, error) {
	products, err := productIndex(ctx, store)
	if err != nil {
		return nil, err
	}
	lines, err := store.BOM().List(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64][]*entities.BOMLine)
	for _, line := range lines {
		byProduct[line.FinishedProductID] = append(byProduct[line.FinishedProductID], line)
	}

	out := make([]dto.ManufacturableProduct, 0, len(byProduct))
	for id, bom := range byProduct {
		p, ok := products[id]
		if !ok || p.Type != entities.FinishedGood {
			continue
		}
		out = append(out, dto.ManufacturableProduct{
			ID:           p.ID,
			Name:         p.Name,
			SKU:          p.SKU,
			CurrentStock: p.QuantityInStock,
			UnitCost:     costing.UnitCost(bom, products),
			Materials:    len(bom),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// productIndex loads every product keyed by id
func productIndex(ctx context.Context, store repositories.Store) (map[int64]*entities.Product, error) {
	products, err := store.Products().List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, err
	}
	index := make(map[int64]*entities.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index, nil
}
