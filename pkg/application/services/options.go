package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultLowStockThreshold is the on-hand quantity at or under which a product counts as low
var DefaultLowStockThreshold = decimal.NewFromInt(10)

const (
	// DefaultExpiryWindowDays is how far ahead batches count as expiring
	DefaultExpiryWindowDays = 30
	// DefaultRecentLimit bounds recent activity and recent sales listings
	DefaultRecentLimit = 10
	// DefaultRecentBatches bounds the recent receiving listing
	DefaultRecentBatches = 20
)

// Option configures the collaborators shared by the application services
type Option func(*deps)

// WithEvents publishes domain events to bus after each committed change
func WithEvents(bus events.EventStore) Option {
	return func(d *deps) {
		d.events = bus
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *deps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCache enables read-through caching of summaries
func WithCache(c cache.Cache) Option {
	return func(d *deps) {
		d.cache = c
	}
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLowStockThreshold sets the low stock level
func WithLowStockThreshold(threshold decimal.Decimal) Option {
	return func(d *deps) {
		if !threshold.IsNegative() {
			d.lowStock = threshold
		}
	}
}

// WithExpiryWindow sets how many days ahead batches count as expiring
func WithExpiryWindow(days int) Option {
	return func(d *deps) {
		if days >= 0 {
			d.expiryWindow = days
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing passwords
func WithPasswordCost(cost int) Option {
	return func(d *deps) {
		if cost > 0 {
			d.passwordCost = cost
		}
	}
}

type deps struct {
	store        repositories.TxStore
	events       events.EventStore
	cache        cache.Cache
	logger       *zap.Logger
	now          func() time.Time
	lowStock     decimal.Decimal
	expiryWindow int
	passwordCost int
}

func newDeps(store repositories.TxStore, component string, opts []Option) deps {
	d := deps{
		store:        store,
		logger:       zap.NewNop(),
		now:          time.Now,
		lowStock:     DefaultLowStockThreshold,
		expiryWindow: DefaultExpiryWindowDays,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.logger = d.logger.With(zap.String("component", component))
	return d
}

// publish delivers events after commit; failures are logged, never returned
func (d deps) publish(evts ...events.Event) {
	for _, e := range evts {
		if err := events.Publish(d.events, e); err != nil {
			d.logger.Warn("failed to publish event", zap.String("type", e.Type()), zap.Error(err))
		}
	}
}

// stockEvents builds the movement event plus a low stock alert when the product dropped under the threshold
func (d deps) stockEvents(tx *entities.Transaction, p *entities.Product) []events.Event {
	out := []events.Event{events.NewStockMovedEvent(*tx, p.SKU, p.QuantityInStock)}
	if tx.Type == entities.StockOut && p.QuantityInStock.LessThanOrEqual(d.lowStock) {
		out = append(out, events.NewLowStockEvent(*p, d.lowStock))
	}
	return out
}

// today is local midnight in the clock's own location, the same day invoice numbers carry
func (d deps) today() time.Time {
	now := d.now()
	y, m, day := now.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, now.Location())
}

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
