package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"github.com/vsinha/stockroom/pkg/infrastructure/pdf"
	"go.uber.org/zap"
)

// maxInvoiceAttempts bounds retries when two sales land on the same invoice number
const maxInvoiceAttempts = 5

// SalesService records invoices against finished goods stock
type SalesService struct {
	deps
	numberer *domain.InvoiceNumberer
	invoices *pdf.InvoiceRenderer
}

// NewSalesService creates a sales service; invoices renders PDFs and may be nil
func NewSalesService(store repositories.TxStore, invoices *pdf.InvoiceRenderer, opts ...Option) *SalesService {
	s := &SalesService{
		deps:     newDeps(store, "sales", opts),
		invoices: invoices,
	}
	s.numberer = domain.NewInvoiceNumbererWithClock(s.now)
	return s
}

// CreateSale validates the lines against finished goods stock and records the invoice,
// its stock withdrawals and out movements atomically.
func (s *SalesService) CreateSale(ctx context.Context, in dto.SaleInput) (*entities.Sale, error) {
	items := make([]entities.SaleItem, 0, len(in.Items))
	for i, line := range in.Items {
		item, err := s.saleItem(ctx, i+1, line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sale, err := entities.NewSale(in.CustomerName, strings.TrimSpace(in.PaymentMethod), items, s.now())
	if err != nil {
		return nil, err
	}
	sale.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	sale.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	sale.CustomerAddr = strings.TrimSpace(in.CustomerAddress)
	sale.Notes = strings.TrimSpace(in.Notes)

	var published []events.Event
	for attempt := 0; attempt < maxInvoiceAttempts; attempt++ {
		sale.InvoiceNumber = s.numberer.Next(attempt)
		published, err = s.record(ctx, sale)
		if !errors.Is(err, entities.ErrConflict) {
			break
		}
		s.logger.Debug("invoice number taken, retrying", zap.String("invoice", sale.InvoiceNumber))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale recorded",
		zap.String("invoice", sale.InvoiceNumber),
		zap.String("customer", sale.CustomerName),
		zap.Int("items", len(sale.Items)),
		zap.Stringer("total", sale.TotalAmount))
	s.publish(events.NewSaleRecordedEvent(*sale))
	s.publish(published...)
	return sale, nil
}

func (s *SalesService) saleItem(ctx context.Context, n int, line dto.SaleItemInput) (entities.SaleItem, error) {
	if line.ProductID <= 0 {
		return entities.SaleItem{}, entities.Invalidf("item %d: product must be selected", n)
	}
	product, err := s.store.Products().Get(ctx, line.ProductID)
	if err != nil {
		return entities.SaleItem{}, fmt.Errorf("item %d: %w", n, err)
	}
	if product.Type != entities.FinishedGood {
		return entities.SaleItem{}, entities.Invalidf("item %d: product %s is not a finished product", n, product.SKU)
	}
	if product.QuantityInStock.LessThan(line.Quantity) {
		return entities.SaleItem{}, fmt.Errorf("item %d: only %s of %s in stock, requested %s: %w",
			n, product.QuantityInStock, product.SKU, line.Quantity, entities.ErrInsufficientStock)
	}

	price := product.PriceSelling
	if line.UnitPrice != nil {
		price = *line.UnitPrice
	}
	return entities.SaleItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		Quantity:    line.Quantity,
		UnitPrice:   price,
	}, nil
}

// record writes the sale under its current invoice number
func (s *SalesService) record(ctx context.Context, sale *entities.Sale) ([]events.Event, error) {
	var published []events.Event
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		published = published[:0]
		if err := tx.Sales().Create(ctx, sale); err != nil {
			return err
		}
		for _, item := range sale.Items {
			if err := tx.Products().AdjustStock(ctx, item.ProductID, item.Quantity.Neg()); err != nil {
				return fmt.Errorf("item %s: %w", item.ProductSKU, err)
			}
			movement, err := entities.NewTransaction(item.ProductID, entities.StockOut, item.Quantity, item.UnitPrice, entities.SourceSale,
				fmt.Sprintf("Sold on invoice %s", sale.InvoiceNumber))
			if err != nil {
				return err
			}
			movement.WithReference(sale.ID)
			movement.Date = sale.SaleDate
			if err := tx.Transactions().Create(ctx, movement); err != nil {
				return err
			}
			product, err := tx.Products().Get(ctx, item.ProductID)
			if err != nil {
				return err
			}
			published = append(published, s.stockEvents(movement, product)...)
		}
		return nil
	})
	return published, err
}

func (s *SalesService) GetSale(ctx context.Context, id int64) (*entities.Sale, error) {
	return s.store.Sales().Get(ctx, id)
}

// RecentSales returns sales newest first; limit <= 0 uses DefaultRecentLimit
func (s *SalesService) RecentSales(ctx context.Context, limit int) ([]*entities.Sale, error) {
	return s.store.Sales().List(ctx, limitOr(limit, DefaultRecentLimit))
}

// Summary aggregates every recorded sale; it is cached when a cache is configured
func (s *SalesService) Summary(ctx context.Context) (*dto.SalesSummary, error) {
	var summary dto.SalesSummary
	if s.cache != nil {
		err := cache.GetJSON(ctx, s.cache, cache.SalesSummaryKey, &summary)
		if err == nil {
			return &summary, nil
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("sales summary cache read failed", zap.Error(err))
		}
	}

	computed, err := salesSummary(ctx, s.store, s.today())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, cache.SalesSummaryKey, computed, 0); err != nil {
			s.logger.Warn("sales summary cache write failed", zap.Error(err))
		}
	}
	return computed, nil
}

func salesSummary(ctx context.Context, store repositories.Store, today time.Time) (*dto.SalesSummary, error) {
	sales, err := store.Sales().List(ctx, 0)
	if err != nil {
		return nil, err
	}
	summary := &dto.SalesSummary{Revenue: decimal.Zero, Average: decimal.Zero, TodayRevenue: decimal.Zero}
	tomorrow := today.AddDate(0, 0, 1)
	for _, sale := range sales {
		summary.Count++
		summary.Revenue = summary.Revenue.Add(sale.TotalAmount)
		if !sale.SaleDate.Before(today) && sale.SaleDate.Before(tomorrow) {
			summary.TodayCount++
			summary.TodayRevenue = summary.TodayRevenue.Add(sale.TotalAmount)
		}
	}
	if summary.Count > 0 {
		summary.Average = summary.Revenue.Div(decimal.NewFromInt(int64(summary.Count))).Round(2)
	}
	return summary, nil
}

// Invoice renders the PDF invoice of a sale to w
func (s *SalesService) Invoice(ctx context.Context, id int64, w io.Writer) (*entities.Sale, error) {
	if s.invoices == nil {
		return nil, fmt.Errorf("invoice rendering is not configured")
	}
	sale, err := s.store.Sales().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Render(w, sale); err != nil {
		return nil, err
	}
	return sale, nil
}
