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

// TransactionRepository implements repositories.TransactionRepository
type TransactionRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO transactions (product_id, tx_type, quantity, price, source, reference_id, notes, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ProductID, tx.Type.String(), tx.Quantity, tx.Price, string(tx.Source),
		nullInt(tx.ReferenceID), tx.Notes, tx.Date.UTC())
	if err != nil {
		return fmt.Errorf("failed to record %s movement of product %d: %w", tx.Type, tx.ProductID, err)
	}
	tx.ID = id
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}

	query := "SELECT id, product_id, tx_type, quantity, price, source, reference_id, notes, date FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]*entities.Transaction, 0)
	for rows.Next() {
		var (
			t              entities.Transaction
			txType, source string
			ref            sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.ProductID, &txType, &t.Quantity, &t.Price, &source, &ref, &t.Notes, &t.Date); err != nil {
			return nil, err
		}
		if t.Type, err = entities.ParseTxType(txType); err != nil {
			return nil, err
		}
		t.Source = entities.TxSource(source)
		t.ReferenceID = intPtr(ref)
		t.Date = t.Date.UTC()
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// BatchRepository implements repositories.BatchRepository
type BatchRepository struct {
	c conn
}

// Verify interface compliance
var _ repositories.BatchRepository = (*BatchRepository)(nil)

const batchSelect = `SELECT b.id, b.product_id, b.batch_number, b.quantity_received, b.quantity_remaining,
	b.date_received, b.expiration_date, b.barcode, b.coa_provided, b.kebs_smark_number, b.receiver_name,
	b.supplier_id, b.price_per_unit, b.created_at,
	q.color, q.packaging, q.shelf_life, q.weight, q.coa, q.seal_integrity, q.labelling,
	q.storage_conditions, q.overall_status, q.notes
	FROM raw_material_batches b
	JOIN receiving_quality_checks q ON q.batch_id = b.id`

const (
	orderOldestFirst = " ORDER BY b.date_received ASC, b.id ASC"
	orderNewestFirst = " ORDER BY b.date_received DESC, b.id DESC"
)

func scanBatch(row scanner) (*entities.Batch, error) {
	var (
		b          entities.Batch
		expiry     sql.NullTime
		supplierID sql.NullInt64
		checks     [8]string
		overall    string
	)
	err := row.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.QuantityReceived, &b.QuantityRemaining,
		&b.DateReceived, &expiry, &b.Barcode, &b.COAProvided, &b.KEBSSMarkNumber, &b.ReceiverName,
		&supplierID, &b.PricePerUnit, &b.CreatedAt,
		&checks[0], &checks[1], &checks[2], &checks[3], &checks[4], &checks[5], &checks[6],
		&checks[7], &overall, &b.Quality.Notes)
	if err != nil {
		return nil, err
	}

	targets := []*entities.CheckResult{
		&b.Quality.Color, &b.Quality.Packaging, &b.Quality.ShelfLife, &b.Quality.Weight,
		&b.Quality.COA, &b.Quality.SealIntegrity, &b.Quality.Labelling, &b.Quality.StorageConditions,
	}
	for i, target := range targets {
		if *target, err = entities.ParseCheckResult(checks[i]); err != nil {
			return nil, err
		}
	}
	if b.Quality.OverallStatus, err = entities.ParseQCStatus(overall); err != nil {
		return nil, err
	}

	b.DateReceived = b.DateReceived.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.ExpirationDate = timePtr(expiry)
	b.SupplierID = intPtr(supplierID)
	return &b, nil
}

// Create stores the batch and its quality check; callers wanting atomicity run it inside WithinTx
func (r *BatchRepository) Create(ctx context.Context, batch *entities.Batch) error {
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO raw_material_batches (product_id, batch_number, quantity_received, quantity_remaining,
		 date_received, expiration_date, barcode, coa_provided, kebs_smark_number, receiver_name,
		 supplier_id, price_per_unit, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		batch.ProductID, batch.BatchNumber, batch.QuantityReceived, batch.QuantityRemaining,
		batch.DateReceived.UTC(), nullTime(batch.ExpirationDate), batch.Barcode, batch.COAProvided,
		batch.KEBSSMarkNumber, batch.ReceiverName, nullInt(batch.SupplierID), batch.PricePerUnit, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store batch %s: %w", batch.BatchNumber, err)
	}

	q := batch.Quality
	_, err = r.c.exec(ctx,
		`INSERT INTO receiving_quality_checks (batch_id, color, packaging, shelf_life, weight, coa,
		 seal_integrity, labelling, storage_conditions, overall_status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, q.Color.String(), q.Packaging.String(), q.ShelfLife.String(), q.Weight.String(), q.COA.String(),
		q.SealIntegrity.String(), q.Labelling.String(), q.StorageConditions.String(), q.OverallStatus.String(), q.Notes)
	if err != nil {
		return fmt.Errorf("failed to store quality check for batch %s: %w", batch.BatchNumber, err)
	}
	batch.ID = id
	return nil
}

func (r *BatchRepository) Get(ctx context.Context, id int64) (*entities.Batch, error) {
	b, err := scanBatch(r.c.queryRow(ctx, batchSelect+" WHERE b.id = $1", id))
	if err != nil {
		return nil, notFound(err, "batch %d", id)
	}
	return b, nil
}

func (r *BatchRepository) ListForProduct(ctx context.Context, productID int64) ([]*entities.Batch, error) {
	return r.list(ctx, batchSelect+" WHERE b.product_id = $1"+orderOldestFirst, productID)
}

func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Batch, error) {
	if limit > 0 {
		return r.list(ctx, batchSelect+orderNewestFirst+" LIMIT $1", limit)
	}
	return r.list(ctx, batchSelect+orderNewestFirst)
}

func (r *BatchRepository) Search(ctx context.Context, query string) ([]*entities.Batch, error) {
	return r.list(ctx, batchSelect+` WHERE LOWER(b.batch_number) LIKE $1 ESCAPE '\'`+orderNewestFirst, likePattern(query))
}

func (r *BatchRepository) ListWithRemaining(ctx context.Context) ([]*entities.Batch, error) {
	return r.list(ctx, batchSelect+" WHERE "+r.c.dialect.positive("b.quantity_remaining")+orderOldestFirst)
}

// Consume draws qty from the batch unless it holds less
func (r *BatchRepository) Consume(ctx context.Context, id int64, qty decimal.Decimal) error {
	if r.c.dialect == SQLite {
		return r.consumeExact(ctx, id, qty)
	}
	res, err := r.c.exec(ctx,
		`UPDATE raw_material_batches SET quantity_remaining = quantity_remaining - $1
		 WHERE id = $2 AND quantity_remaining >= $1`, qty, id)
	if err != nil {
		return fmt.Errorf("failed to consume from batch %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	b, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("batch %s has %s, need %s: %w", b.BatchNumber, b.QuantityRemaining, qty, entities.ErrInsufficientStock)
}

func (r *BatchRepository) consumeExact(ctx context.Context, id int64, qty decimal.Decimal) error {
	have, ok, err := r.c.swapDecimal(ctx, "raw_material_batches", "quantity_remaining", id, func(current decimal.Decimal) (decimal.Decimal, bool) {
		return current.Sub(qty), !current.LessThan(qty)
	})
	if err != nil {
		return notFound(err, "batch %d", id)
	}
	if ok {
		return nil
	}

	b, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("batch %s has %s, need %s: %w", b.BatchNumber, have, qty, entities.ErrInsufficientStock)
}

func (r *BatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.Batch, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]*entities.Batch, 0)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
