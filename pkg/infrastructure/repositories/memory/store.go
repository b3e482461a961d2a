package memory

import (
	"context"
	"sync"

	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// state holds every table; repositories read and write it through an acquireFunc
type state struct {
	suppliers    map[int64]entities.Supplier
	products     map[int64]entities.Product
	bom          map[int64]entities.BOMLine
	transactions []entities.Transaction
	batches      map[int64]entities.Batch
	sales        map[int64]entities.Sale
	runs         map[int64]entities.ProductionRun
	users        map[int64]entities.User
	sequences    map[string]int64
}

func newState() *state {
	return &state{
		suppliers: make(map[int64]entities.Supplier),
		products:  make(map[int64]entities.Product),
		bom:       make(map[int64]entities.BOMLine),
		batches:   make(map[int64]entities.Batch),
		sales:     make(map[int64]entities.Sale),
		runs:      make(map[int64]entities.ProductionRun),
		users:     make(map[int64]entities.User),
		sequences: make(map[string]int64),
	}
}

func (s *state) nextID(table string) int64 {
	s.sequences[table]++
	return s.sequences[table]
}

// clone copies the state so a transaction can be discarded on error
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.bom {
		c.bom[k] = v
	}
	c.transactions = append(make([]entities.Transaction, 0, len(s.transactions)), s.transactions...)
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.sales {
		v.Items = append([]entities.SaleItem(nil), v.Items...)
		c.sales[k] = v
	}
	for k, v := range s.runs {
		v.Materials = append([]entities.RunMaterial(nil), v.Materials...)
		c.runs[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// acquireFunc returns the state to operate on and a release function
type acquireFunc func() (*state, func())

// Store is an in-memory repositories.TxStore guarded by a single mutex
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{data: newState()}
}

// Verify interface compliance
var _ repositories.TxStore = (*Store)(nil)

func (s *Store) lock() (*state, func()) {
	s.mu.Lock()
	return s.data, s.mu.Unlock
}

func (s *Store) Suppliers() repositories.SupplierRepository {
	return &SupplierRepository{acquire: s.lock}
}

func (s *Store) Products() repositories.ProductRepository {
	return &ProductRepository{acquire: s.lock}
}

func (s *Store) BOM() repositories.BOMRepository {
	return &BOMRepository{acquire: s.lock}
}

func (s *Store) Transactions() repositories.TransactionRepository {
	return &TransactionRepository{acquire: s.lock}
}

func (s *Store) Batches() repositories.BatchRepository {
	return &BatchRepository{acquire: s.lock}
}

func (s *Store) Sales() repositories.SaleRepository {
	return &SaleRepository{acquire: s.lock}
}

func (s *Store) Production() repositories.ProductionRepository {
	return &ProductionRepository{acquire: s.lock}
}

func (s *Store) Users() repositories.UserRepository {
	return &UserRepository{acquire: s.lock}
}

// WithinTx runs fn against a private copy of the state and publishes it only on success.
// fn must use the Store it is given; calling back into s would deadlock.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.data.clone()
	if err := fn(newTxView(draft)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = draft
	return nil
}

// txView exposes a draft state without locking; the owning Store holds the mutex
type txView struct {
	acquire acquireFunc
}

func newTxView(draft *state) *txView {
	return &txView{acquire: func() (*state, func()) { return draft, func() {} }}
}

func (t *txView) Suppliers() repositories.SupplierRepository {
	return &SupplierRepository{acquire: t.acquire}
}

func (t *txView) Products() repositories.ProductRepository {
	return &ProductRepository{acquire: t.acquire}
}

func (t *txView) BOM() repositories.BOMRepository {
	return &BOMRepository{acquire: t.acquire}
}

func (t *txView) Transactions() repositories.TransactionRepository {
	return &TransactionRepository{acquire: t.acquire}
}

func (t *txView) Batches() repositories.BatchRepository {
	return &BatchRepository{acquire: t.acquire}
}

func (t *txView) Sales() repositories.SaleRepository {
	return &SaleRepository{acquire: t.acquire}
}

func (t *txView) Production() repositories.ProductionRepository {
	return &ProductionRepository{acquire: t.acquire}
}

func (t *txView) Users() repositories.UserRepository {
	return &UserRepository{acquire: t.acquire}
}
