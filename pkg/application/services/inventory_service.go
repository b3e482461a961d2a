package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"go.uber.org/zap"
)

// InventoryService answers the read-only stock views
type InventoryService struct {
	deps
	costing *domain.CostCalculator
}

// NewInventoryService creates an inventory view service over store
func NewInventoryService(store repositories.TxStore, opts ...Option) *InventoryService {
	return &InventoryService{
		deps:    newDeps(store, "inventory", opts),
		costing: domain.NewCostCalculator(),
	}
}

// LowStockThreshold is the level used for low stock filters and alerts
func (s *InventoryService) LowStockThreshold() decimal.Decimal {
	return s.lowStock
}

// RawMaterials returns the raw materials view with batch counts and value totals
func (s *InventoryService) RawMaterials(ctx context.Context, filter dto.MaterialFilter) (*dto.MaterialReport, error) {
	raw := entities.RawMaterial
	materials, err := s.store.Products().List(ctx, repositories.ProductFilter{
		Type:       &raw,
		Category:   filter.Category,
		SupplierID: filter.SupplierID,
	})
	if err != nil {
		return nil, err
	}
	suppliers, err := s.store.Suppliers().List(ctx)
	if err != nil {
		return nil, err
	}
	supplierNames := make(map[int64]string, len(suppliers))
	for _, sup := range suppliers {
		supplierNames[sup.ID] = sup.Name
	}

	report := &dto.MaterialReport{
		Materials:  make([]dto.MaterialView, 0, len(materials)),
		Summary:    dto.MaterialSummary{TotalQuantity: decimal.Zero, TotalValue: decimal.Zero},
		Categories: categories(materials),
	}
	for _, m := range materials {
		if !filter.Level.Matches(m.QuantityInStock, s.lowStock) {
			continue
		}
		batches, err := s.store.Batches().ListForProduct(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		view := dto.MaterialView{
			ID:              m.ID,
			Name:            m.Name,
			SKU:             m.SKU,
			Category:        m.Category,
			CategoryCode:    m.CategoryCode,
			QuantityInStock: m.QuantityInStock,
			PricePaid:       m.PricePaid,
			TotalValue:      m.StockValue(),
			BatchCount:      len(batches),
		}
		if m.SupplierID != nil {
			view.SupplierName = supplierNames[*m.SupplierID]
		}
		for _, b := range batches {
			if b.Active() {
				view.ActiveBatches++
			}
		}

		report.Materials = append(report.Materials, view)
		report.Summary.Items++
		report.Summary.TotalQuantity = report.Summary.TotalQuantity.Add(view.QuantityInStock)
		report.Summary.TotalValue = report.Summary.TotalValue.Add(view.TotalValue)
		report.Summary.TotalBatches += view.BatchCount
		report.Summary.ActiveBatches += view.ActiveBatches
	}
	return report, nil
}

func categories(products []*entities.Product) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// BatchDetails breaks a raw material down by batch, oldest first
func (s *InventoryService) BatchDetails(ctx context.Context, materialID int64) (*dto.BatchDetails, error) {
	if _, err := s.store.Products().Get(ctx, materialID); err != nil {
		return nil, err
	}
	batches, err := s.store.Batches().ListForProduct(ctx, materialID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views, err := batchViews(ctx, s.store, batches, now, s.expiryWindow)
	if err != nil {
		return nil, err
	}

	details := &dto.BatchDetails{
		MaterialID:     materialID,
		Batches:        views,
		ActiveQuantity: activeQuantity(views),
	}
	totalAge := 0
	for _, v := range views {
		totalAge += int(now.Sub(v.DateReceived).Hours() / 24)
		if v.Status == dto.BatchExpiring {
			details.ExpiringSoon++
		}
	}
	if len(views) > 0 {
		details.AverageAgeDays = totalAge / len(views)
	}
	return details, nil
}

// Transactions lists stock movements newest first
func (s *InventoryService) Transactions(ctx context.Context, filter repositories.TransactionFilter) ([]dto.TransactionView, error) {
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, entities.Invalidf("unknown transaction source %q", filter.Source)
	}
	return transactionViews(ctx, s.store, filter)
}

// LowStock lists every product at or under the threshold, lowest first
func (s *InventoryService) LowStock(ctx context.Context) ([]dto.LowStockItem, error) {
	products, err := s.store.Products().List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, err
	}
	return lowStock(products, s.lowStock), nil
}

func lowStock(products []*entities.Product, threshold decimal.Decimal) []dto.LowStockItem {
	out := make([]dto.LowStockItem, 0)
	for _, p := range products {
		if entities.LowStock.Matches(p.QuantityInStock, threshold) {
			out = append(out, dto.LowStockItem{ID: p.ID, Name: p.Name, SKU: p.SKU, Type: p.Type, Quantity: p.QuantityInStock})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity.LessThan(out[j].Quantity)
	})
	return out
}

// Dashboard summarises stock, value and sales. Results are cached until the next
// stock, run or catalog event invalidates them, when a cache is configured.
func (s *InventoryService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	if s.cache != nil {
		var cached dto.Dashboard
		err := cache.GetJSON(ctx, s.cache, cache.DashboardKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	board, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, cache.DashboardKey, board, 0); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

func (s *InventoryService) buildDashboard(ctx context.Context) (*dto.Dashboard, error) {
	products, err := s.store.Products().List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, err
	}
	index := make(map[int64]*entities.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	lines, err := s.store.BOM().List(ctx)
	if err != nil {
		return nil, err
	}
	bom := make(map[int64][]*entities.BOMLine)
	for _, line := range lines {
		bom[line.FinishedProductID] = append(bom[line.FinishedProductID], line)
	}

	board := &dto.Dashboard{
		RawMaterialValue:  decimal.Zero,
		FinishedGoodValue: decimal.Zero,
		LowStock:          lowStock(products, s.lowStock),
		GeneratedAt:       s.now().UTC(),
	}
	for _, p := range products {
		if p.IsRaw() {
			board.RawMaterials++
			board.RawMaterialValue = board.RawMaterialValue.Add(p.StockValue())
			continue
		}
		board.FinishedProducts++
		unitCost := s.costing.UnitCost(bom[p.ID], index)
		board.FinishedGoodValue = board.FinishedGoodValue.Add(p.QuantityInStock.Mul(unitCost).Round(2))
	}

	expiring, err := expiringBatches(ctx, s.store, s.now(), s.expiryWindow)
	if err != nil {
		return nil, err
	}
	board.ExpiringBatches = len(expiring)

	runs, err := s.store.Production().List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if !r.Status.Terminal() {
			board.OpenRuns++
		}
	}

	sales, err := salesSummary(ctx, s.store, s.today())
	if err != nil {
		return nil, err
	}
	board.Sales = *sales
	return board, nil
}
