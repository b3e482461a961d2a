package repositories

import "context"

// Store groups the repositories that share one datastore
type Store interface {
	Suppliers() SupplierRepository
	Products() ProductRepository
	BOM() BOMRepository
	Transactions() TransactionRepository
	Batches() BatchRepository
	Sales() SaleRepository
	Production() ProductionRepository
	Users() UserRepository
}

// TxStore is a Store that can run a unit of work atomically.
// The Store passed to fn sees the pending writes; they are committed only if fn returns nil.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
