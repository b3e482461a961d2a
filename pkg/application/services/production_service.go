package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// InsufficientMaterialsError is returned when on-hand stock cannot cover a planned run.
// It matches entities.ErrInsufficientStock and carries the full check.
type InsufficientMaterialsError struct {
	Check *domain.RequirementCheck
}

func (e *InsufficientMaterialsError) Error() string {
	short := e.Check.Shortages()
	parts := make([]string, 0, len(short))
	for _, m := range short {
		parts = append(parts, fmt.Sprintf("%s short by %s", m.MaterialSKU, m.Shortage))
	}
	return fmt.Sprintf("cannot produce %s of product %d: %v", e.Check.Quantity, e.Check.ProductID, parts)
}

func (e *InsufficientMaterialsError) Unwrap() error {
	return entities.ErrInsufficientStock
}

// ProductionService drives production runs from material check to completion
type ProductionService struct {
	deps
	costing *domain.CostCalculator
}

// NewProductionService creates a production service over store
func NewProductionService(store repositories.TxStore, opts ...Option) *ProductionService {
	return &ProductionService{
		deps:    newDeps(store, "production", opts),
		costing: domain.NewCostCalculator(),
	}
}

// CheckMaterials compares the BOM requirements for quantity units against on-hand stock
func (s *ProductionService) CheckMaterials(ctx context.Context, productID int64, quantity decimal.Decimal) (*domain.RequirementCheck, error) {
	product, err := s.store.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, s.store, product, quantity)
}

func (s *ProductionService) check(ctx context.Context, store repositories.Store, product *entities.Product, quantity decimal.Decimal) (*domain.RequirementCheck, error) {
	if product.Type != entities.FinishedGood {
		return nil, entities.Invalidf("product %s is not a finished product", product.SKU)
	}
	lines, err := store.BOM().ListForProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	materials := make(map[int64]*entities.Product, len(lines))
	for _, line := range lines {
		m, err := store.Products().Get(ctx, line.RawMaterialID)
		if err != nil {
			return nil, fmt.Errorf("raw material %d: %w", line.RawMaterialID, err)
		}
		materials[m.ID] = m
	}
	return s.costing.ExplodeRequirements(product.ID, quantity, lines, materials)
}

// PlanRun checks materials and records a run in the checked state with a snapshot of the requirements
func (s *ProductionService) PlanRun(ctx context.Context, productID int64, quantity decimal.Decimal, notes string) (*entities.ProductionRun, error) {
	product, err := s.store.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	check, err := s.check(ctx, s.store, product, quantity)
	if err != nil {
		return nil, err
	}
	if !check.OK {
		return nil, &InsufficientMaterialsError{Check: check}
	}

	run, err := entities.NewProductionRun(product.ID, product.Name, quantity, notes, check.RunMaterials())
	if err != nil {
		return nil, err
	}
	run.CreatedAt = s.now().UTC()
	if err := s.store.Production().Create(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("production run planned",
		zap.Int64("run_id", run.ID),
		zap.String("sku", string(product.SKU)),
		zap.Stringer("quantity", quantity))
	s.publish(events.NewRunStatusChangedEvent(*run, entities.RunChecked, run.CreatedAt))
	return run, nil
}

// StartRun moves a checked run to in progress
func (s *ProductionService) StartRun(ctx context.Context, id int64) (*entities.ProductionRun, error) {
	return s.transition(ctx, id, entities.RunChecked, entities.RunInProgress)
}

// CancelRun abandons a run that has not completed; stock is untouched
func (s *ProductionService) CancelRun(ctx context.Context, id int64) (*entities.ProductionRun, error) {
	run, err := s.store.Production().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, run.Status, entities.RunCancelled)
}

func (s *ProductionService) transition(ctx context.Context, id int64, from, to entities.RunStatus) (*entities.ProductionRun, error) {
	at := s.now().UTC()
	if err := s.store.Production().Transition(ctx, id, from, to, at); err != nil {
		return nil, err
	}
	run, err := s.store.Production().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("production run status changed",
		zap.Int64("run_id", id),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	s.publish(events.NewRunStatusChangedEvent(*run, from, at))
	return run, nil
}

// FinishRun completes an in-progress run. In one transaction it marks the run completed,
// draws every material down by its planned requirement (batches oldest first), books
// the out movements, and adds the produced quantity to finished stock.
func (s *ProductionService) FinishRun(ctx context.Context, id int64) (*dto.ProductionResult, error) {
	at := s.now().UTC()
	result := &dto.ProductionResult{}
	var published []events.Event

	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		published = published[:0]
		result.Consumption = result.Consumption[:0]

		run, err := tx.Production().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Production().Transition(ctx, id, entities.RunInProgress, entities.RunCompleted, at); err != nil {
			return err
		}

		for _, m := range run.Materials {
			consumed, moved, err := s.consume(ctx, tx, run, m, at)
			if err != nil {
				return err
			}
			result.Consumption = append(result.Consumption, consumed)
			published = append(published, moved...)
		}

		if err := tx.Products().AdjustStock(ctx, run.ProductID, run.Quantity); err != nil {
			return err
		}
		produced, err := entities.NewTransaction(run.ProductID, entities.StockIn, run.Quantity, run.UnitCost, entities.SourceProduction,
			fmt.Sprintf("Produced in run #%d", run.ID))
		if err != nil {
			return err
		}
		produced.WithReference(run.ID)
		produced.Date = at
		if err := tx.Transactions().Create(ctx, produced); err != nil {
			return err
		}
		finished, err := tx.Products().Get(ctx, run.ProductID)
		if err != nil {
			return err
		}
		published = append(published, s.stockEvents(produced, finished)...)

		if result.Run, err = tx.Production().Get(ctx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finish run %d: %w", id, err)
	}

	s.logger.Info("production run completed",
		zap.Int64("run_id", id),
		zap.Int64("product_id", result.Run.ProductID),
		zap.Stringer("quantity", result.Run.Quantity))
	s.publish(published...)
	s.publish(
		events.NewRunStatusChangedEvent(*result.Run, entities.RunInProgress, at),
		events.NewProductionCompletedEvent(*result.Run),
	)
	return result, nil
}

// consume withdraws one material for run inside tx
func (s *ProductionService) consume(ctx context.Context, tx repositories.Store, run *entities.ProductionRun, m entities.RunMaterial, at time.Time) (entities.ConsumptionResult, []events.Event, error) {
	if err := tx.Products().AdjustStock(ctx, m.RawMaterialID, m.QuantityRequired.Neg()); err != nil {
		return entities.ConsumptionResult{}, nil, fmt.Errorf("material %s: %w", m.MaterialSKU, err)
	}

	batches, err := tx.Batches().ListForProduct(ctx, m.RawMaterialID)
	if err != nil {
		return entities.ConsumptionResult{}, nil, err
	}
	plan := domain.PlanConsumption(m.RawMaterialID, batches, m.QuantityRequired)
	for _, c := range plan.ConsumedFrom {
		if err := tx.Batches().Consume(ctx, c.BatchID, c.Quantity); err != nil {
			return entities.ConsumptionResult{}, nil, err
		}
	}
	if plan.Uncovered.IsPositive() {
		s.logger.Debug("material drawn beyond batch coverage",
			zap.Int64("run_id", run.ID),
			zap.String("sku", string(m.MaterialSKU)),
			zap.Stringer("uncovered", plan.Uncovered))
	}

	used, err := entities.NewTransaction(m.RawMaterialID, entities.StockOut, m.QuantityRequired, m.UnitPrice, entities.SourceProduction,
		fmt.Sprintf("Used in production run #%d", run.ID))
	if err != nil {
		return entities.ConsumptionResult{}, nil, err
	}
	used.WithReference(run.ID)
	used.Date = at
	if err := tx.Transactions().Create(ctx, used); err != nil {
		return entities.ConsumptionResult{}, nil, err
	}

	material, err := tx.Products().Get(ctx, m.RawMaterialID)
	if err != nil {
		return entities.ConsumptionResult{}, nil, err
	}
	return plan, s.stockEvents(used, material), nil
}

// Produce plans, starts and finishes a run in one call.
// A run that fails to finish is cancelled so it does not linger in progress.
func (s *ProductionService) Produce(ctx context.Context, productID int64, quantity decimal.Decimal, notes string) (*dto.ProductionResult, error) {
	run, err := s.PlanRun(ctx, productID, quantity, notes)
	if err != nil {
		return nil, err
	}
	if _, err := s.StartRun(ctx, run.ID); err != nil {
		return nil, err
	}
	result, err := s.FinishRun(ctx, run.ID)
	if err != nil {
		if _, cancelErr := s.CancelRun(ctx, run.ID); cancelErr != nil && !errors.Is(cancelErr, entities.ErrInvalidTransition) {
			s.logger.Warn("failed to cancel unfinished run", zap.Int64("run_id", run.ID), zap.Error(cancelErr))
		}
		return nil, err
	}
	return result, nil
}

func (s *ProductionService) GetRun(ctx context.Context, id int64) (*entities.ProductionRun, error) {
	return s.store.Production().Get(ctx, id)
}

// ListRuns returns runs newest first; limit <= 0 means all
func (s *ProductionService) ListRuns(ctx context.Context, limit int) ([]*entities.ProductionRun, error) {
	return s.store.Production().List(ctx, limit)
}

// RecentActivity returns production movements newest first
func (s *ProductionService) RecentActivity(ctx context.Context, limit int) ([]dto.TransactionView, error) {
	return transactionViews(ctx, s.store, repositories.TransactionFilter{
		Source: entities.SourceProduction,
		Limit:  limitOr(limit, DefaultRecentLimit),
	})
}

// transactionViews lists movements joined with their product
func transactionViews(ctx context.Context, store repositories.Store, filter repositories.TransactionFilter) ([]dto.TransactionView, error) {
	txs, err := store.Transactions().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	products, err := productIndex(ctx, store)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransactionView, 0, len(txs))
	for _, tx := range txs {
		view := dto.TransactionView{Transaction: *tx}
		if p, ok := products[tx.ProductID]; ok {
			view.ProductName = p.Name
			view.ProductSKU = p.SKU
		}
		out = append(out, view)
	}
	return out, nil
}
