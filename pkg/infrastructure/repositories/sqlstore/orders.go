package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// ProductionRepository implements repositories.ProductionRepository
type ProductionRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

const runColumns = `id, product_id, product_name, quantity, status, notes, unit_cost,
	created_at, started_at, completed_at, cancelled_at`

func scanRun(row scanner) (*entities.ProductionRun, error) {
	var (
		run                             entities.ProductionRun
		status                          string
		started, completed, cancelledAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.ProductID, &run.ProductName, &run.Quantity, &status, &run.Notes, &run.UnitCost,
		&run.CreatedAt, &started, &completed, &cancelledAt)
	if err != nil {
		return nil, err
	}
	if run.Status, err = entities.ParseRunStatus(status); err != nil {
		return nil, err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.StartedAt = timePtr(started)
	run.CompletedAt = timePtr(completed)
	run.CancelledAt = timePtr(cancelledAt)
	return &run, nil
}

// Create stores the run header and its material snapshot
func (r *ProductionRepository) Create(ctx context.Context, run *entities.ProductionRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO production_runs (product_id, product_name, quantity, status, notes, unit_cost,
		 created_at, started_at, completed_at, cancelled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ProductID, run.ProductName, run.Quantity, run.Status.String(), run.Notes, run.UnitCost,
		run.CreatedAt, nullTime(run.StartedAt), nullTime(run.CompletedAt), nullTime(run.CancelledAt))
	if err != nil {
		return fmt.Errorf("failed to create production run for product %d: %w", run.ProductID, err)
	}

	for _, m := range run.Materials {
		_, err := r.c.exec(ctx,
			`INSERT INTO production_run_materials (run_id, raw_material_id, material_name, material_sku,
			 quantity_per_unit, quantity_required, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, m.RawMaterialID, m.MaterialName, string(m.MaterialSKU), m.QuantityPerUnit, m.QuantityRequired, m.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to store material %d for run %d: %w", m.RawMaterialID, id, err)
		}
	}
	run.ID = id
	return nil
}

func (r *ProductionRepository) Get(ctx context.Context, id int64) (*entities.ProductionRun, error) {
	run, err := scanRun(r.c.queryRow(ctx, "SELECT "+runColumns+" FROM production_runs WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "production run %d", id)
	}
	if run.Materials, err = r.materials(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *ProductionRepository) List(ctx context.Context, limit int) ([]*entities.ProductionRun, error) {
	query := "SELECT " + runColumns + " FROM production_runs ORDER BY id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	runs := make([]*entities.ProductionRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Materials load after the header cursor closes; SQLite runs on a single connection.
	for _, run := range runs {
		if run.Materials, err = r.materials(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *ProductionRepository) materials(ctx context.Context, runID int64) ([]entities.RunMaterial, error) {
	rows, err := r.c.query(ctx,
		`SELECT raw_material_id, material_name, material_sku, quantity_per_unit, quantity_required, unit_price
		 FROM production_run_materials WHERE run_id = $1 ORDER BY material_name, raw_material_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []entities.RunMaterial
	for rows.Next() {
		var m entities.RunMaterial
		var sku string
		if err := rows.Scan(&m.RawMaterialID, &m.MaterialName, &sku, &m.QuantityPerUnit, &m.QuantityRequired, &m.UnitPrice); err != nil {
			return nil, err
		}
		m.MaterialSKU = entities.SKU(sku)
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// Transition updates the status only while the row is still in from
func (r *ProductionRepository) Transition(ctx context.Context, id int64, from, to entities.RunStatus, at time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("run %d %s -> %s: %w", id, from, to, entities.ErrInvalidTransition)
	}

	column := map[entities.RunStatus]string{
		entities.RunInProgress: "started_at",
		entities.RunCompleted:  "completed_at",
		entities.RunCancelled:  "cancelled_at",
	}[to]
	res, err := r.c.exec(ctx,
		fmt.Sprintf("UPDATE production_runs SET status = $1, %s = $2 WHERE id = $3 AND status = $4", column),
		to.String(), at.UTC(), id, from.String())
	if err != nil {
		return fmt.Errorf("failed to move run %d to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	if err := r.c.queryRow(ctx, "SELECT status FROM production_runs WHERE id = $1", id).Scan(&status); err != nil {
		return notFound(err, "production run %d", id)
	}
	return fmt.Errorf("run %d is %s, not %s: %w", id, status, from, entities.ErrInvalidTransition)
}

// SaleRepository implements repositories.SaleRepository
type SaleRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.SaleRepository = (*SaleRepository)(nil)

const saleColumns = `id, invoice_number, customer_name, customer_email, customer_phone, customer_address,
	payment_method, sale_date, total_amount, notes`

func scanSale(row scanner) (*entities.Sale, error) {
	var s entities.Sale
	err := row.Scan(&s.ID, &s.InvoiceNumber, &s.CustomerName, &s.CustomerEmail, &s.CustomerPhone, &s.CustomerAddr,
		&s.PaymentMethod, &s.SaleDate, &s.TotalAmount, &s.Notes)
	if err != nil {
		return nil, err
	}
	s.SaleDate = s.SaleDate.UTC()
	return &s, nil
}

// Create stores the invoice header and its items
func (r *SaleRepository) Create(ctx context.Context, sale *entities.Sale) error {
	id, err := r.c.insert(ctx,
		`INSERT INTO sales (invoice_number, customer_name, customer_email, customer_phone, customer_address,
		 payment_method, sale_date, total_amount, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sale.InvoiceNumber, sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone, sale.CustomerAddr,
		sale.PaymentMethod, sale.SaleDate.UTC(), sale.TotalAmount, sale.Notes)
	if err != nil {
		return fmt.Errorf("failed to create invoice %s: %w", sale.InvoiceNumber, err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		itemID, err := r.c.insert(ctx,
			`INSERT INTO sales_items (sale_id, product_id, product_name, product_sku, quantity, unit_price, total_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, item.ProductID, item.ProductName, string(item.ProductSKU), item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return fmt.Errorf("failed to store item %d of invoice %s: %w", i+1, sale.InvoiceNumber, err)
		}
		item.ID = itemID
	}
	sale.ID = id
	return nil
}

func (r *SaleRepository) Get(ctx context.Context, id int64) (*entities.Sale, error) {
	s, err := scanSale(r.c.queryRow(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "sale %d", id)
	}
	if s.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SaleRepository) List(ctx context.Context, limit int) ([]*entities.Sale, error) {
	query := "SELECT " + saleColumns + " FROM sales ORDER BY sale_date DESC, id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	sales := make([]*entities.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, s := range sales {
		if s.Items, err = r.items(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (r *SaleRepository) items(ctx context.Context, saleID int64) ([]entities.SaleItem, error) {
	rows, err := r.c.query(ctx,
		`SELECT id, product_id, product_name, product_sku, quantity, unit_price, total_price
		 FROM sales_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entities.SaleItem
	for rows.Next() {
		var it entities.SaleItem
		var sku string
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &sku, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		it.ProductSKU = entities.SKU(sku)
		items = append(items, it)
	}
	return items, rows.Err()
}

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.UserRepository = (*UserRepository)(nil)

func scanUser(row scanner) (*entities.User, error) {
	var u entities.User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		"INSERT INTO users (email, full_name, password_hash, created_at) VALUES ($1, $2, $3, $4)",
		user.Email, user.FullName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*entities.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, "SELECT id, email, full_name, password_hash, created_at FROM users WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, "SELECT id, email, full_name, password_hash, created_at FROM users WHERE email = $1", email))
	if err != nil {
		return nil, notFound(err, "user %s", email)
	}
	return u, nil
}
