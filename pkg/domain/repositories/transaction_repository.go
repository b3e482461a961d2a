package repositories

import (
	"context"

	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// TransactionFilter narrows the stock movement log; zero values match everything
type TransactionFilter struct {
	ProductID int64
	Source    entities.TxSource
	Limit     int
}

// TransactionRepository is the append-only stock movement log
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	// List returns matching movements newest first
	List(ctx context.Context, filter TransactionFilter) ([]*entities.Transaction, error)
}
