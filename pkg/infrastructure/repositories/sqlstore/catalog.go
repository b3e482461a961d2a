package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// requireAffected turns an update that touched no rows into ErrNotFound
func requireAffected(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, entities.ErrNotFound)...)
	}
	return nil
}

// SupplierRepository implements repositories.SupplierRepository
type SupplierRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.SupplierRepository = (*SupplierRepository)(nil)

const supplierColumns = "id, name, contact, phone, email, raw_materials, category_codes, created_at"

func scanSupplier(row scanner) (*entities.Supplier, error) {
	var s entities.Supplier
	if err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.RawMaterials, &s.CategoryCodes, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func (r *SupplierRepository) Create(ctx context.Context, supplier *entities.Supplier) error {
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO suppliers (name, contact, phone, email, raw_materials, category_codes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		supplier.Name, supplier.Contact, supplier.Phone, supplier.Email,
		supplier.RawMaterials, supplier.CategoryCodes, supplier.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create supplier %q: %w", supplier.Name, err)
	}
	supplier.ID = id
	return nil
}

func (r *SupplierRepository) Get(ctx context.Context, id int64) (*entities.Supplier, error) {
	s, err := scanSupplier(r.c.queryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "supplier %d", id)
	}
	return s, nil
}

func (r *SupplierRepository) GetByName(ctx context.Context, name string) (*entities.Supplier, error) {
	s, err := scanSupplier(r.c.queryRow(ctx,
		"SELECT "+supplierColumns+" FROM suppliers WHERE name = $1", name))
	if err != nil {
		return nil, notFound(err, "supplier %q", name)
	}
	return s, nil
}

func (r *SupplierRepository) List(ctx context.Context) ([]*entities.Supplier, error) {
	rows, err := r.c.query(ctx, "SELECT "+supplierColumns+" FROM suppliers ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*entities.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *SupplierRepository) Update(ctx context.Context, supplier *entities.Supplier) error {
	res, err := r.c.exec(ctx,
		`UPDATE suppliers SET name = $1, contact = $2, phone = $3, email = $4, raw_materials = $5, category_codes = $6
		 WHERE id = $7`,
		supplier.Name, supplier.Contact, supplier.Phone, supplier.Email,
		supplier.RawMaterials, supplier.CategoryCodes, supplier.ID)
	if err != nil {
		return fmt.Errorf("failed to update supplier %d: %w", supplier.ID, err)
	}
	return requireAffected(res, "supplier %d", supplier.ID)
}

func (r *SupplierRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.c.exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("supplier %d is still referenced: %w", id, err)
	}
	return requireAffected(res, "supplier %d", id)
}

// ProductRepository implements repositories.ProductRepository
type ProductRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, name, sku, product_type, category, category_code, quantity_in_stock,
	price_paid, price_selling, supplier_id, created_at`

func scanProduct(row scanner) (*entities.Product, error) {
	var (
		p          entities.Product
		sku, ptype string
		supplierID sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Name, &sku, &ptype, &p.Category, &p.CategoryCode, &p.QuantityInStock,
		&p.PricePaid, &p.PriceSelling, &supplierID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.Type, err = entities.ParseProductType(ptype); err != nil {
		return nil, err
	}
	p.SKU = entities.SKU(sku)
	p.SupplierID = intPtr(supplierID)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *entities.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO products (name, sku, product_type, category, category_code, quantity_in_stock,
		 price_paid, price_selling, supplier_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		product.Name, string(product.SKU), product.Type.String(), product.Category, product.CategoryCode,
		product.QuantityInStock, product.PricePaid, product.PriceSelling, nullInt(product.SupplierID), product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product %s: %w", product.SKU, err)
	}
	product.ID = id
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id int64) (*entities.Product, error) {
	p, err := scanProduct(r.c.queryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "product %d", id)
	}
	return p, nil
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku entities.SKU) (*entities.Product, error) {
	p, err := scanProduct(r.c.queryRow(ctx, "SELECT "+productColumns+" FROM products WHERE sku = $1", string(sku)))
	if err != nil {
		return nil, notFound(err, "product %s", sku)
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Type != nil {
		args = append(args, filter.Type.String())
		where = append(where, fmt.Sprintf("product_type = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entities.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update rewrites master data; on-hand stock only moves through AdjustStock
func (r *ProductRepository) Update(ctx context.Context, product *entities.Product) error {
	res, err := r.c.exec(ctx,
		`UPDATE products SET name = $1, sku = $2, product_type = $3, category = $4, category_code = $5,
		 price_paid = $6, price_selling = $7, supplier_id = $8
		 WHERE id = $9`,
		product.Name, string(product.SKU), product.Type.String(), product.Category, product.CategoryCode,
		product.PricePaid, product.PriceSelling, nullInt(product.SupplierID), product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	return requireAffected(res, "product %d", product.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.c.exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("product %d is still referenced: %w", id, err)
	}
	return requireAffected(res, "product %d", id)
}

// AdjustStock applies delta unless it would overdraw. PostgreSQL does it in one guarded
// statement; SQLite swaps the exact decimal text.
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) error {
	if r.c.dialect == SQLite {
		return r.adjustStockExact(ctx, id, delta)
	}
	res, err := r.c.exec(ctx,
		`UPDATE products SET quantity_in_stock = quantity_in_stock + $1
		 WHERE id = $2 AND quantity_in_stock + $1 >= 0`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust stock of product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("product %s has %s, need %s: %w", p.SKU, p.QuantityInStock, delta.Neg(), entities.ErrInsufficientStock)
}

func (r *ProductRepository) adjustStockExact(ctx context.Context, id int64, delta decimal.Decimal) error {
	have, ok, err := r.c.swapDecimal(ctx, "products", "quantity_in_stock", id, func(current decimal.Decimal) (decimal.Decimal, bool) {
		updated := current.Add(delta)
		return updated, !updated.IsNegative()
	})
	if err != nil {
		return notFound(err, "product %d", id)
	}
	if ok {
		return nil
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("product %s has %s, need %s: %w", p.SKU, have, delta.Neg(), entities.ErrInsufficientStock)
}

func (r *ProductRepository) SetPricePaid(ctx context.Context, id int64, price decimal.Decimal) error {
	res, err := r.c.exec(ctx, "UPDATE products SET price_paid = $1 WHERE id = $2", price, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "product %d", id)
}

// BOMRepository implements repositories.BOMRepository
type BOMRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

const bomColumns = "id, finished_product_id, raw_material_id, quantity_required, product_volume"

func scanBOMLine(row scanner) (*entities.BOMLine, error) {
	var l entities.BOMLine
	if err := row.Scan(&l.ID, &l.FinishedProductID, &l.RawMaterialID, &l.QuantityRequired, &l.ProductVolume); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *BOMRepository) Create(ctx context.Context, line *entities.BOMLine) error {
	id, err := r.c.insert(ctx,
		`INSERT INTO bill_of_materials (finished_product_id, raw_material_id, quantity_required, product_volume)
		 VALUES ($1, $2, $3, $4)`,
		line.FinishedProductID, line.RawMaterialID, line.QuantityRequired, line.ProductVolume)
	if err != nil {
		return fmt.Errorf("failed to add raw material %d to product %d: %w", line.RawMaterialID, line.FinishedProductID, err)
	}
	line.ID = id
	return nil
}

func (r *BOMRepository) Get(ctx context.Context, id int64) (*entities.BOMLine, error) {
	l, err := scanBOMLine(r.c.queryRow(ctx, "SELECT "+bomColumns+" FROM bill_of_materials WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "bom line %d", id)
	}
	return l, nil
}

func (r *BOMRepository) Update(ctx context.Context, line *entities.BOMLine) error {
	res, err := r.c.exec(ctx,
		`UPDATE bill_of_materials SET finished_product_id = $1, raw_material_id = $2, quantity_required = $3, product_volume = $4
		 WHERE id = $5`,
		line.FinishedProductID, line.RawMaterialID, line.QuantityRequired, line.ProductVolume, line.ID)
	if err != nil {
		return fmt.Errorf("failed to update bom line %d: %w", line.ID, err)
	}
	return requireAffected(res, "bom line %d", line.ID)
}

func (r *BOMRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.c.exec(ctx, "DELETE FROM bill_of_materials WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "bom line %d", id)
}

func (r *BOMRepository) ListForProduct(ctx context.Context, finishedProductID int64) ([]*entities.BOMLine, error) {
	return r.list(ctx, "SELECT "+bomColumns+" FROM bill_of_materials WHERE finished_product_id = $1 ORDER BY id", finishedProductID)
}

func (r *BOMRepository) List(ctx context.Context) ([]*entities.BOMLine, error) {
	return r.list(ctx, "SELECT "+bomColumns+" FROM bill_of_materials ORDER BY finished_product_id, id")
}

func (r *BOMRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.BOMLine, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*entities.BOMLine
	for rows.Next() {
		l, err := scanBOMLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
