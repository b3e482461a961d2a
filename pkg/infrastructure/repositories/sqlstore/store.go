package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

// Store is a repositories.TxStore backed by database/sql
type Store struct {
	db      *sql.DB
	dialect Dialect
	conn    conn
}

// New wraps an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, conn: conn{q: db, dialect: dialect}}
}

// Verify interface compliance
var _ repositories.TxStore = (*Store)(nil)

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports which SQL dialect the store speaks
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Suppliers() repositories.SupplierRepository       { return &SupplierRepository{c: s.conn} }
func (s *Store) Products() repositories.ProductRepository         { return &ProductRepository{c: s.conn} }
func (s *Store) BOM() repositories.BOMRepository                  { return &BOMRepository{c: s.conn} }
func (s *Store) Transactions() repositories.TransactionRepository { return &TransactionRepository{c: s.conn} }
func (s *Store) Batches() repositories.BatchRepository            { return &BatchRepository{c: s.conn} }
func (s *Store) Sales() repositories.SaleRepository               { return &SaleRepository{c: s.conn} }
func (s *Store) Production() repositories.ProductionRepository    { return &ProductionRepository{c: s.conn} }
func (s *Store) Users() repositories.UserRepository               { return &UserRepository{c: s.conn} }

// WithinTx executes fn inside a database transaction.
// The transaction is rolled back if fn returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txStore{c: conn{q: tx, dialect: s.dialect}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

// txStore routes every repository through an open *sql.Tx
type txStore struct {
	c conn
}

func (t *txStore) Suppliers() repositories.SupplierRepository       { return &SupplierRepository{c: t.c} }
func (t *txStore) Products() repositories.ProductRepository         { return &ProductRepository{c: t.c} }
func (t *txStore) BOM() repositories.BOMRepository                  { return &BOMRepository{c: t.c} }
func (t *txStore) Transactions() repositories.TransactionRepository { return &TransactionRepository{c: t.c} }
func (t *txStore) Batches() repositories.BatchRepository            { return &BatchRepository{c: t.c} }
func (t *txStore) Sales() repositories.SaleRepository               { return &SaleRepository{c: t.c} }
func (t *txStore) Production() repositories.ProductionRepository    { return &ProductionRepository{c: t.c} }
func (t *txStore) Users() repositories.UserRepository               { return &UserRepository{c: t.c} }
