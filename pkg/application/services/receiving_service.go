package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// ReceivingService books incoming raw material batches and their quality checks
type ReceivingService struct {
	deps
}

// NewReceivingService creates a receiving service over store
func NewReceivingService(store repositories.TxStore, opts ...Option) *ReceivingService {
	return &ReceivingService{deps: newDeps(store, "receiving", opts)}
}

// ReceiveBatch stores the batch and its inspection. Accepted batches add to stock,
// set the material's purchase price, and log an in movement; rejected ones are kept
// for the record with nothing remaining.
func (s *ReceivingService) ReceiveBatch(ctx context.Context, in dto.ReceiveBatchInput) (*entities.Batch, error) {
	if in.MaterialID <= 0 {
		return nil, entities.Invalidf("raw material must be selected")
	}
	material, err := s.store.Products().Get(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	if !material.IsRaw() {
		return nil, entities.Invalidf("product %s is not a raw material", material.SKU)
	}
	if in.PricePerUnit.IsNegative() {
		return nil, entities.Invalidf("price per unit cannot be negative, got %s", in.PricePerUnit)
	}

	supplierName := "Unknown"
	if in.SupplierID != nil {
		supplier, err := s.store.Suppliers().Get(ctx, *in.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("supplier %d: %w", *in.SupplierID, err)
		}
		supplierName = supplier.Name
	}

	received := s.now()
	if in.DateReceived != nil {
		received = *in.DateReceived
	}
	qc := in.Quality
	qc.Notes = strings.TrimSpace(qc.Notes)
	batch, err := entities.NewBatch(material.ID, in.BatchNumber, in.Quantity, in.ReceiverName, qc, received)
	if err != nil {
		return nil, err
	}
	if in.ExpirationDate != nil {
		expiry := in.ExpirationDate.UTC()
		batch.ExpirationDate = &expiry
	}
	batch.Barcode = strings.TrimSpace(in.Barcode)
	batch.COAProvided = in.COAProvided
	batch.KEBSSMarkNumber = strings.TrimSpace(in.KEBSSMarkNumber)
	batch.SupplierID = in.SupplierID
	batch.PricePerUnit = in.PricePerUnit
	batch.CreatedAt = s.now().UTC()

	var published []events.Event
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		published = published[:0]
		if err := tx.Batches().Create(ctx, batch); err != nil {
			return err
		}
		if !qc.Passed() {
			return nil
		}

		if err := tx.Products().AdjustStock(ctx, material.ID, batch.QuantityReceived); err != nil {
			return err
		}
		if err := tx.Products().SetPricePaid(ctx, material.ID, batch.PricePerUnit); err != nil {
			return err
		}
		movement, err := entities.NewTransaction(material.ID, entities.StockIn, batch.QuantityReceived, batch.PricePerUnit, entities.SourceReceiving,
			fmt.Sprintf("Received batch %s from %s", batch.BatchNumber, supplierName))
		if err != nil {
			return err
		}
		movement.WithReference(batch.ID)
		movement.Date = batch.DateReceived
		if err := tx.Transactions().Create(ctx, movement); err != nil {
			return err
		}
		updated, err := tx.Products().Get(ctx, material.ID)
		if err != nil {
			return err
		}
		published = s.stockEvents(movement, updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if qc.Passed() {
		s.logger.Info("batch received",
			zap.String("batch_number", batch.BatchNumber),
			zap.String("sku", string(material.SKU)),
			zap.Stringer("quantity", batch.QuantityReceived),
			zap.String("supplier", supplierName))
	} else {
		s.logger.Warn("batch rejected",
			zap.String("batch_number", batch.BatchNumber),
			zap.String("sku", string(material.SKU)),
			zap.Strings("failed_checks", qc.Failures()))
	}
	s.publish(events.NewBatchReceivedEvent(*batch))
	s.publish(published...)
	return batch, nil
}

// CreateMaterial adds a raw material with no stock from the receiving form
func (s *ReceivingService) CreateMaterial(ctx context.Context, in dto.ProductInput) (*entities.Product, error) {
	material, err := entities.NewProduct(in.Name, in.SKU, entities.RawMaterial)
	if err != nil {
		return nil, err
	}
	material.Category = strings.TrimSpace(in.Category)
	material.CategoryCode = strings.TrimSpace(in.CategoryCode)
	material.SupplierID = in.SupplierID
	material.CreatedAt = s.now().UTC()
	if err := s.store.Products().Create(ctx, material); err != nil {
		return nil, err
	}
	s.logger.Info("raw material created", zap.Int64("product_id", material.ID), zap.String("sku", string(material.SKU)))
	s.publish(events.NewCatalogChangedEvent("product", material.ID, events.ActionCreated))
	return material, nil
}

// RecentBatches returns the latest received batches; limit <= 0 uses DefaultRecentBatches
func (s *ReceivingService) RecentBatches(ctx context.Context, limit int) ([]dto.BatchView, error) {
	batches, err := s.store.Batches().ListRecent(ctx, limitOr(limit, DefaultRecentBatches))
	if err != nil {
		return nil, err
	}
	return batchViews(ctx, s.store, batches, s.now(), s.expiryWindow)
}

// SearchBatches finds batches whose number contains query, ignoring case
func (s *ReceivingService) SearchBatches(ctx context.Context, query string) ([]dto.BatchView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, entities.Invalidf("search query cannot be empty")
	}
	batches, err := s.store.Batches().Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return batchViews(ctx, s.store, batches, s.now(), s.expiryWindow)
}

// ExpiringBatches returns batches with stock that expire within windowDays, soonest first.
// A negative window uses the configured default.
func (s *ReceivingService) ExpiringBatches(ctx context.Context, windowDays int) ([]dto.BatchView, error) {
	if windowDays < 0 {
		windowDays = s.expiryWindow
	}
	return expiringBatches(ctx, s.store, s.now(), windowDays)
}

func expiringBatches(ctx context.Context, store repositories.Store, now time.Time, windowDays int) ([]dto.BatchView, error) {
	batches, err := store.Batches().ListWithRemaining(ctx)
	if err != nil {
		return nil, err
	}
	expiring := make([]*entities.Batch, 0)
	for _, b := range batches {
		if b.ExpiresWithin(now, windowDays) {
			expiring = append(expiring, b)
		}
	}
	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].ExpirationDate.Before(*expiring[j].ExpirationDate)
	})
	return batchViews(ctx, store, expiring, now, windowDays)
}

// batchViews joins batches with material and supplier names and derives a display status
func batchViews(ctx context.Context, store repositories.Store, batches []*entities.Batch, now time.Time, windowDays int) ([]dto.BatchView, error) {
	products, err := productIndex(ctx, store)
	if err != nil {
		return nil, err
	}
	suppliers, err := store.Suppliers().List(ctx)
	if err != nil {
		return nil, err
	}
	supplierNames := make(map[int64]string, len(suppliers))
	for _, sup := range suppliers {
		supplierNames[sup.ID] = sup.Name
	}

	out := make([]dto.BatchView, 0, len(batches))
	for _, b := range batches {
		view := dto.BatchView{Batch: *b, SupplierName: "Unknown", Status: batchStatus(b, now, windowDays)}
		if p, ok := products[b.ProductID]; ok {
			view.MaterialName = p.Name
			view.MaterialSKU = p.SKU
		}
		if b.SupplierID != nil {
			if name, ok := supplierNames[*b.SupplierID]; ok {
				view.SupplierName = name
			}
		}
		if days, ok := b.DaysUntilExpiry(now); ok {
			view.DaysUntilExpiry = &days
		}
		out = append(out, view)
	}
	return out, nil
}

func batchStatus(b *entities.Batch, now time.Time, windowDays int) string {
	switch {
	case !b.Quality.Passed():
		return dto.BatchRejected
	case !b.QuantityRemaining.IsPositive():
		return dto.BatchDepleted
	case b.ExpiresWithin(now, windowDays):
		return dto.BatchExpiring
	default:
		return dto.BatchActive
	}
}

// activeQuantity sums what is left in usable batches
func activeQuantity(batches []dto.BatchView) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.Active() {
			total = total.Add(b.QuantityRemaining)
		}
	}
	return total
}
