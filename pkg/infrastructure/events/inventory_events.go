package events

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

const (
	StockMovedEvent = "stock.moved"
	LowStockEvent   = "stock.low"

	BatchReceivedEvent = "batch.received"

	RunStatusChangedEvent    = "production.status_changed"
	ProductionCompletedEvent = "production.completed"

	SaleRecordedEvent = "sale.recorded"

	CatalogChangedEvent = "catalog.changed"
)

// Catalog change actions
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

type StockMoved struct {
	Transaction entities.Transaction `json:"transaction"`
	ProductSKU  entities.SKU         `json:"product_sku"`
	StockAfter  decimal.Decimal      `json:"stock_after"`
}

type LowStock struct {
	ProductID int64           `json:"product_id"`
	SKU       entities.SKU    `json:"sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
}

type BatchReceived struct {
	Batch    entities.Batch `json:"batch"`
	Accepted bool           `json:"accepted"`
}

type RunStatusChanged struct {
	RunID     int64              `json:"run_id"`
	ProductID int64              `json:"product_id"`
	From      entities.RunStatus `json:"from"`
	To        entities.RunStatus `json:"to"`
	At        time.Time          `json:"at"`
}

type ProductionCompleted struct {
	Run entities.ProductionRun `json:"run"`
}

type SaleRecorded struct {
	Sale entities.Sale `json:"sale"`
}

type CatalogChanged struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id,omitempty"`
	Action string `json:"action"`
}

func productStream(id int64) string {
	return fmt.Sprintf("product-%d", id)
}

func NewStockMovedEvent(tx entities.Transaction, sku entities.SKU, stockAfter decimal.Decimal) Event {
	return NewEvent(StockMovedEvent, productStream(tx.ProductID), StockMoved{
		Transaction: tx,
		ProductSKU:  sku,
		StockAfter:  stockAfter,
	})
}

func NewLowStockEvent(p entities.Product, threshold decimal.Decimal) Event {
	return NewEvent(LowStockEvent, productStream(p.ID), LowStock{
		ProductID: p.ID,
		SKU:       p.SKU,
		Quantity:  p.QuantityInStock,
		Threshold: threshold,
	})
}

func NewBatchReceivedEvent(batch entities.Batch) Event {
	return NewEvent(BatchReceivedEvent, productStream(batch.ProductID), BatchReceived{
		Batch:    batch,
		Accepted: batch.Quality.Passed(),
	})
}

func NewRunStatusChangedEvent(run entities.ProductionRun, from entities.RunStatus, at time.Time) Event {
	return NewEvent(RunStatusChangedEvent, fmt.Sprintf("run-%d", run.ID), RunStatusChanged{
		RunID:     run.ID,
		ProductID: run.ProductID,
		From:      from,
		To:        run.Status,
		At:        at,
	})
}

func NewProductionCompletedEvent(run entities.ProductionRun) Event {
	return NewEvent(ProductionCompletedEvent, fmt.Sprintf("run-%d", run.ID), ProductionCompleted{Run: run})
}

func NewSaleRecordedEvent(sale entities.Sale) Event {
	return NewEvent(SaleRecordedEvent, "sale-"+sale.InvoiceNumber, SaleRecorded{Sale: sale})
}

func NewCatalogChangedEvent(entity string, id int64, action string) Event {
	return NewEvent(CatalogChangedEvent, "catalog-"+entity, CatalogChanged{
		Entity: entity,
		ID:     id,
		Action: action,
	})
}
