package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the direction of a stock movement
type TxType int

const (
	StockIn TxType = iota
	StockOut
)

// String method for TxType enum
func (t TxType) String() string {
	switch t {
	case StockIn:
		return "in"
	case StockOut:
		return "out"
	default:
		return "unknown"
	}
}

// ParseTxType converts the stored form back into a TxType
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(s) {
	case "in":
		return StockIn, nil
	case "out":
		return StockOut, nil
	default:
		return 0, fmt.Errorf("unknown transaction type %q", s)
	}
}

func (t TxType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TxType) UnmarshalText(b []byte) error {
	parsed, err := ParseTxType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TxSource records which workflow moved the stock
type TxSource string

const (
	SourceReceiving  TxSource = "receiving"
	SourceProduction TxSource = "production"
	SourceSale       TxSource = "sale"
	SourceAdjustment TxSource = "adjustment"
	SourceImport     TxSource = "import"
)

// Valid reports whether s is a known source
func (s TxSource) Valid() bool {
	switch s {
	case SourceReceiving, SourceProduction, SourceSale, SourceAdjustment, SourceImport:
		return true
	}
	return false
}

// Transaction is an append-only stock movement record
type Transaction struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	Type        TxType          `json:"tx_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Source      TxSource        `json:"source"`
	ReferenceID *int64          `json:"reference_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Date        time.Time       `json:"date"`
}

// NewTransaction creates a validated Transaction dated now
func NewTransaction(productID int64, txType TxType, quantity, price decimal.Decimal, source TxSource, notes string) (*Transaction, error) {
	if productID <= 0 {
		return nil, Invalidf("product id must be positive, got %d", productID)
	}
	if !quantity.IsPositive() {
		return nil, Invalidf("transaction quantity must be positive, got %s", quantity)
	}
	if price.IsNegative() {
		return nil, Invalidf("transaction price cannot be negative, got %s", price)
	}
	if !source.Valid() {
		return nil, Invalidf("unknown transaction source %q", source)
	}
	return &Transaction{
		ProductID: productID,
		Type:      txType,
		Quantity:  quantity,
		Price:     price,
		Source:    source,
		Notes:     notes,
		Date:      time.Now().UTC(),
	}, nil
}

// WithReference links the movement to the batch, run or sale that caused it
func (t *Transaction) WithReference(id int64) *Transaction {
	t.ReferenceID = &id
	return t
}
