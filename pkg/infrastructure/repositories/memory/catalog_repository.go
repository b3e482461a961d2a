package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// SupplierRepository provides in-memory supplier storage
type SupplierRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.SupplierRepository = (*SupplierRepository)(nil)

// Create stores a new supplier and assigns its id
func (r *SupplierRepository) Create(ctx context.Context, supplier *entities.Supplier) error {
	st, release := r.acquire()
	defer release()

	if err := supplierNameTaken(st, supplier.Name, 0); err != nil {
		return err
	}
	supplier.ID = st.nextID("suppliers")
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	st.suppliers[supplier.ID] = *supplier
	return nil
}

// Get returns a supplier by id
func (r *SupplierRepository) Get(ctx context.Context, id int64) (*entities.Supplier, error) {
	st, release := r.acquire()
	defer release()

	s, ok := st.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier %d: %w", id, entities.ErrNotFound)
	}
	return &s, nil
}

// GetByName returns a supplier by exact name
func (r *SupplierRepository) GetByName(ctx context.Context, name string) (*entities.Supplier, error) {
	st, release := r.acquire()
	defer release()

	for _, s := range st.suppliers {
		if s.Name == name {
			found := s
			return &found, nil
		}
	}
	return nil, fmt.Errorf("supplier %q: %w", name, entities.ErrNotFound)
}

// List returns suppliers ordered by name
func (r *SupplierRepository) List(ctx context.Context) ([]*entities.Supplier, error) {
	st, release := r.acquire()
	defer release()

	suppliers := make([]*entities.Supplier, 0, len(st.suppliers))
	for _, s := range st.suppliers {
		s := s
		suppliers = append(suppliers, &s)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

// Update replaces a stored supplier
func (r *SupplierRepository) Update(ctx context.Context, supplier *entities.Supplier) error {
	st, release := r.acquire()
	defer release()

	existing, ok := st.suppliers[supplier.ID]
	if !ok {
		return fmt.Errorf("supplier %d: %w", supplier.ID, entities.ErrNotFound)
	}
	if err := supplierNameTaken(st, supplier.Name, supplier.ID); err != nil {
		return err
	}
	supplier.CreatedAt = existing.CreatedAt
	st.suppliers[supplier.ID] = *supplier
	return nil
}

// Delete removes a supplier that no product or batch references
func (r *SupplierRepository) Delete(ctx context.Context, id int64) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.suppliers[id]; !ok {
		return fmt.Errorf("supplier %d: %w", id, entities.ErrNotFound)
	}
	for _, p := range st.products {
		if p.SupplierID != nil && *p.SupplierID == id {
			return fmt.Errorf("supplier %d is referenced by product %s: %w", id, p.SKU, entities.ErrConflict)
		}
	}
	for _, b := range st.batches {
		if b.SupplierID != nil && *b.SupplierID == id {
			return fmt.Errorf("supplier %d is referenced by batch %s: %w", id, b.BatchNumber, entities.ErrConflict)
		}
	}
	delete(st.suppliers, id)
	return nil
}

func supplierNameTaken(st *state, name string, selfID int64) error {
	for _, s := range st.suppliers {
		if s.Name == name && s.ID != selfID {
			return fmt.Errorf("supplier %q already exists: %w", name, entities.ErrConflict)
		}
	}
	return nil
}

// ProductRepository provides in-memory storage of raw materials and finished goods
type ProductRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// Create stores a new product and assigns its id
func (r *ProductRepository) Create(ctx context.Context, product *entities.Product) error {
	st, release := r.acquire()
	defer release()

	if err := checkProductRefs(st, product); err != nil {
		return err
	}
	product.ID = st.nextID("products")
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	st.products[product.ID] = *product
	return nil
}

// Get returns a product by id
func (r *ProductRepository) Get(ctx context.Context, id int64) (*entities.Product, error) {
	st, release := r.acquire()
	defer release()

	p, ok := st.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, entities.ErrNotFound)
	}
	return &p, nil
}

// GetBySKU returns a product by its SKU
func (r *ProductRepository) GetBySKU(ctx context.Context, sku entities.SKU) (*entities.Product, error) {
	st, release := r.acquire()
	defer release()

	for _, p := range st.products {
		if p.SKU == sku {
			found := p
			return &found, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", sku, entities.ErrNotFound)
}

// List returns matching products ordered by name
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	st, release := r.acquire()
	defer release()

	products := make([]*entities.Product, 0, len(st.products))
	for _, p := range st.products {
		p := p
		if filter.Matches(&p) {
			products = append(products, &p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// Update replaces a stored product
func (r *ProductRepository) Update(ctx context.Context, product *entities.Product) error {
	st, release := r.acquire()
	defer release()

	existing, ok := st.products[product.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", product.ID, entities.ErrNotFound)
	}
	if err := checkProductRefs(st, product); err != nil {
		return err
	}
	product.CreatedAt = existing.CreatedAt
	st.products[product.ID] = *product
	return nil
}

// Delete removes a product nothing else references
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	st, release := r.acquire()
	defer release()

	p, ok := st.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, entities.ErrNotFound)
	}
	for _, l := range st.bom {
		if l.FinishedProductID == id || l.RawMaterialID == id {
			return fmt.Errorf("product %s is used in a bill of materials: %w", p.SKU, entities.ErrConflict)
		}
	}
	for _, t := range st.transactions {
		if t.ProductID == id {
			return fmt.Errorf("product %s has stock transactions: %w", p.SKU, entities.ErrConflict)
		}
	}
	for _, b := range st.batches {
		if b.ProductID == id {
			return fmt.Errorf("product %s has received batches: %w", p.SKU, entities.ErrConflict)
		}
	}
	for _, s := range st.sales {
		for _, item := range s.Items {
			if item.ProductID == id {
				return fmt.Errorf("product %s appears on invoice %s: %w", p.SKU, s.InvoiceNumber, entities.ErrConflict)
			}
		}
	}
	for _, run := range st.runs {
		if run.ProductID == id {
			return fmt.Errorf("product %s has production runs: %w", p.SKU, entities.ErrConflict)
		}
	}
	delete(st.products, id)
	return nil
}

// AdjustStock adds delta to on-hand quantity without letting it go negative
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) error {
	st, release := r.acquire()
	defer release()

	p, ok := st.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, entities.ErrNotFound)
	}
	next := p.QuantityInStock.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("product %s has %s, need %s: %w", p.SKU, p.QuantityInStock, delta.Neg(), entities.ErrInsufficientStock)
	}
	p.QuantityInStock = next
	st.products[id] = p
	return nil
}

// SetPricePaid records the latest purchase price
func (r *ProductRepository) SetPricePaid(ctx context.Context, id int64, price decimal.Decimal) error {
	st, release := r.acquire()
	defer release()

	p, ok := st.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, entities.ErrNotFound)
	}
	p.PricePaid = price
	st.products[id] = p
	return nil
}

func checkProductRefs(st *state, product *entities.Product) error {
	for _, p := range st.products {
		if p.SKU == product.SKU && p.ID != product.ID {
			return fmt.Errorf("sku %s already exists: %w", product.SKU, entities.ErrConflict)
		}
	}
	if product.SupplierID != nil {
		if _, ok := st.suppliers[*product.SupplierID]; !ok {
			return fmt.Errorf("supplier %d does not exist: %w", *product.SupplierID, entities.ErrConflict)
		}
	}
	return nil
}

// BOMRepository provides in-memory Bill of Materials storage
type BOMRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// Create stores a BOM line, enforcing one line per (finished, raw) pair
func (r *BOMRepository) Create(ctx context.Context, line *entities.BOMLine) error {
	st, release := r.acquire()
	defer release()

	if err := checkBOMRefs(st, line); err != nil {
		return err
	}
	line.ID = st.nextID("bill_of_materials")
	st.bom[line.ID] = *line
	return nil
}

// Get returns a BOM line by id
func (r *BOMRepository) Get(ctx context.Context, id int64) (*entities.BOMLine, error) {
	st, release := r.acquire()
	defer release()

	l, ok := st.bom[id]
	if !ok {
		return nil, fmt.Errorf("bom line %d: %w", id, entities.ErrNotFound)
	}
	return &l, nil
}

// Update replaces a stored BOM line
func (r *BOMRepository) Update(ctx context.Context, line *entities.BOMLine) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.bom[line.ID]; !ok {
		return fmt.Errorf("bom line %d: %w", line.ID, entities.ErrNotFound)
	}
	if err := checkBOMRefs(st, line); err != nil {
		return err
	}
	st.bom[line.ID] = *line
	return nil
}

// Delete removes a BOM line
func (r *BOMRepository) Delete(ctx context.Context, id int64) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.bom[id]; !ok {
		return fmt.Errorf("bom line %d: %w", id, entities.ErrNotFound)
	}
	delete(st.bom, id)
	return nil
}

// ListForProduct returns the lines of one finished product ordered by id
func (r *BOMRepository) ListForProduct(ctx context.Context, finishedProductID int64) ([]*entities.BOMLine, error) {
	st, release := r.acquire()
	defer release()

	lines := make([]*entities.BOMLine, 0)
	for _, l := range st.bom {
		l := l
		if l.FinishedProductID == finishedProductID {
			lines = append(lines, &l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

// List returns every BOM line ordered by finished product then id
func (r *BOMRepository) List(ctx context.Context) ([]*entities.BOMLine, error) {
	st, release := r.acquire()
	defer release()

	lines := make([]*entities.BOMLine, 0, len(st.bom))
	for _, l := range st.bom {
		l := l
		lines = append(lines, &l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].FinishedProductID == lines[j].FinishedProductID {
			return lines[i].ID < lines[j].ID
		}
		return lines[i].FinishedProductID < lines[j].FinishedProductID
	})
	return lines, nil
}

func checkBOMRefs(st *state, line *entities.BOMLine) error {
	if _, ok := st.products[line.FinishedProductID]; !ok {
		return fmt.Errorf("product %d does not exist: %w", line.FinishedProductID, entities.ErrConflict)
	}
	if _, ok := st.products[line.RawMaterialID]; !ok {
		return fmt.Errorf("raw material %d does not exist: %w", line.RawMaterialID, entities.ErrConflict)
	}
	for _, l := range st.bom {
		if l.ID != line.ID && l.FinishedProductID == line.FinishedProductID && l.RawMaterialID == line.RawMaterialID {
			return fmt.Errorf("raw material %d is already in the BOM of product %d: %w",
				line.RawMaterialID, line.FinishedProductID, entities.ErrConflict)
		}
	}
	return nil
}
