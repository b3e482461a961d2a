package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// TransactionRepository provides an in-memory stock movement log
type TransactionRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// Create appends a movement to the log
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.products[tx.ProductID]; !ok {
		return fmt.Errorf("product %d does not exist: %w", tx.ProductID, entities.ErrConflict)
	}
	tx.ID = st.nextID("transactions")
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	st.transactions = append(st.transactions, *tx)
	return nil
}

// List returns matching movements newest first
func (r *TransactionRepository) List(ctx context.Context, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	st, release := r.acquire()
	defer release()

	txs := make([]*entities.Transaction, 0)
	for i := len(st.transactions) - 1; i >= 0; i-- {
		t := st.transactions[i]
		if filter.ProductID != 0 && t.ProductID != filter.ProductID {
			continue
		}
		if filter.Source != "" && t.Source != filter.Source {
			continue
		}
		txs = append(txs, &t)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	if filter.Limit > 0 && len(txs) > filter.Limit {
		txs = txs[:filter.Limit]
	}
	return txs, nil
}

// BatchRepository provides in-memory storage of received batches
type BatchRepository struct {
	acquire acquireFunc
}

// Verify interface compliance
var _ repositories.BatchRepository = (*BatchRepository)(nil)

// Create stores a batch with its quality check
func (r *BatchRepository) Create(ctx context.Context, batch *entities.Batch) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.products[batch.ProductID]; !ok {
		return fmt.Errorf("product %d does not exist: %w", batch.ProductID, entities.ErrConflict)
	}
	if batch.SupplierID != nil {
		if _, ok := st.suppliers[*batch.SupplierID]; !ok {
			return fmt.Errorf("supplier %d does not exist: %w", *batch.SupplierID, entities.ErrConflict)
		}
	}
	for _, b := range st.batches {
		if b.ProductID == batch.ProductID && b.BatchNumber == batch.BatchNumber {
			return fmt.Errorf("batch %s already received for product %d: %w", batch.BatchNumber, batch.ProductID, entities.ErrConflict)
		}
	}
	batch.ID = st.nextID("raw_material_batches")
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	st.batches[batch.ID] = *batch
	return nil
}

// Get returns a batch by id
func (r *BatchRepository) Get(ctx context.Context, id int64) (*entities.Batch, error) {
	st, release := r.acquire()
	defer release()

	b, ok := st.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %d: %w", id, entities.ErrNotFound)
	}
	return &b, nil
}

// ListForProduct returns batches of one material oldest received first
func (r *BatchRepository) ListForProduct(ctx context.Context, productID int64) ([]*entities.Batch, error) {
	return r.collect(func(b *entities.Batch) bool { return b.ProductID == productID }, oldestFirst, 0), nil
}

// ListRecent returns batches newest first
func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Batch, error) {
	return r.collect(func(*entities.Batch) bool { return true }, newestFirst, limit), nil
}

// Search matches batch numbers case-insensitively by substring
func (r *BatchRepository) Search(ctx context.Context, query string) ([]*entities.Batch, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.collect(func(b *entities.Batch) bool {
		return strings.Contains(strings.ToLower(b.BatchNumber), q)
	}, newestFirst, 0), nil
}

// ListWithRemaining returns batches that still hold quantity, oldest received first
func (r *BatchRepository) ListWithRemaining(ctx context.Context) ([]*entities.Batch, error) {
	return r.collect(func(b *entities.Batch) bool { return b.QuantityRemaining.IsPositive() }, oldestFirst, 0), nil
}

// Consume draws qty from a batch
func (r *BatchRepository) Consume(ctx context.Context, id int64, qty decimal.Decimal) error {
	st, release := r.acquire()
	defer release()

	b, ok := st.batches[id]
	if !ok {
		return fmt.Errorf("batch %d: %w", id, entities.ErrNotFound)
	}
	if b.QuantityRemaining.LessThan(qty) {
		return fmt.Errorf("batch %s has %s, need %s: %w", b.BatchNumber, b.QuantityRemaining, qty, entities.ErrInsufficientStock)
	}
	b.QuantityRemaining = b.QuantityRemaining.Sub(qty)
	st.batches[id] = b
	return nil
}

func oldestFirst(a, b *entities.Batch) bool {
	if a.DateReceived.Equal(b.DateReceived) {
		return a.ID < b.ID
	}
	return a.DateReceived.Before(b.DateReceived)
}

func newestFirst(a, b *entities.Batch) bool {
	if a.DateReceived.Equal(b.DateReceived) {
		return a.ID > b.ID
	}
	return a.DateReceived.After(b.DateReceived)
}

func (r *BatchRepository) collect(keep func(*entities.Batch) bool, less func(a, b *entities.Batch) bool, limit int) []*entities.Batch {
	st, release := r.acquire()
	defer release()

	batches := make([]*entities.Batch, 0)
	for _, b := range st.batches {
		b := b
		if keep(&b) {
			batches = append(batches, &b)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return less(batches[i], batches[j]) })
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches
}
