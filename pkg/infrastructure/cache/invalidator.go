package cache

import (
	"context"
	"time"

	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// Keys of cached read models
const (
	DashboardKey    = "dashboard"
	SalesSummaryKey = "sales:summary"
)

// Invalidator drops cached read models when stock, runs, catalog or sales change
type Invalidator struct {
	cache  Cache
	logger *zap.Logger
}

// NewInvalidator creates an event handler that evicts read models from c
func NewInvalidator(c Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: c, logger: logger}
}

// EventTypes lists the events that make cached read models stale
func (i *Invalidator) EventTypes() []string {
	return []string{
		events.StockMovedEvent,
		events.BatchReceivedEvent,
		events.RunStatusChangedEvent,
		events.ProductionCompletedEvent,
		events.SaleRecordedEvent,
		events.CatalogChangedEvent,
	}
}

func (i *Invalidator) CanHandle(eventType string) bool {
	for _, t := range i.EventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

func (i *Invalidator) Handle(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keys := []string{DashboardKey}
	if event.Type() == events.SaleRecordedEvent {
		keys = append(keys, SalesSummaryKey)
	}
	for _, key := range keys {
		if err := i.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	i.logger.Debug("invalidated cached views", zap.String("event", event.Type()), zap.Strings("keys", keys))
	return nil
}
