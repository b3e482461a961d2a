package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/stockroom/pkg/application/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/config"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"github.com/vsinha/stockroom/pkg/infrastructure/logging"
	"github.com/vsinha/stockroom/pkg/infrastructure/pdf"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/sqlstore"
	"github.com/vsinha/stockroom/pkg/interfaces/web"
	"go.uber.org/zap"
)

// app holds the long-lived collaborators a command needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *sqlstore.Store
	bus    *events.InMemoryEventStore
	cache  cache.Cache

	closers []func() error
}

// newApp loads configuration, connects to the database and, when migrate is
// set and auto_migrate is on, applies pending migrations
func newApp(ctx context.Context, opts *rootOptions, migrate bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	a.store, err = sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	if migrate && cfg.Database.AutoMigrate {
		applied, err := sqlstore.NewMigrator(a.store, logging.Component(logger, "migrate")).Up(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		if applied > 0 {
			logger.Info("applied migrations", zap.Int("count", applied))
		}
	}

	a.cache, err = openCache(ctx, cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.bus = events.NewInMemoryEventStore(
		events.WithLogger(logging.Component(logger, "events")),
		events.WithRetention(cfg.Events.Retention),
	)
	a.closers = append(a.closers, a.bus.Close)
	return a, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	common := cache.Config{DefaultTTL: cfg.TTL, Prefix: cfg.Prefix}
	if cfg.Backend != "redis" {
		return cache.NewMemoryCache(common), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Cache:    common,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

func (a *app) options(component string) []services.Option {
	return []services.Option{
		services.WithEvents(a.bus),
		services.WithLogger(logging.Component(a.logger, component)),
		services.WithCache(a.cache),
		services.WithLowStockThreshold(a.cfg.Inventory.Threshold()),
		services.WithExpiryWindow(a.cfg.Inventory.ExpiryWindowDays),
		services.WithPasswordCost(a.cfg.Auth.BcryptCost),
	}
}

// services builds every application service over the shared store
func (a *app) services() web.Services {
	if a.cfg.UsesDevSecret() {
		a.logger.Warn("auth.jwt_secret is the built-in development key; set STOCKROOM_AUTH_JWT_SECRET")
	}
	tokens := auth.NewTokenService(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL, a.cache)
	invoices := pdf.NewInvoiceRenderer(pdf.Company{
		Name:    a.cfg.Company.Name,
		Address: a.cfg.Company.Address,
		City:    a.cfg.Company.City,
		Phone:   a.cfg.Company.Phone,
	})
	return web.Services{
		Catalog:    services.NewCatalogService(a.store, a.options("catalog")...),
		Inventory:  services.NewInventoryService(a.store, a.options("inventory")...),
		Receiving:  services.NewReceivingService(a.store, a.options("receiving")...),
		Production: services.NewProductionService(a.store, a.options("production")...),
		Sales:      services.NewSalesService(a.store, invoices, a.options("sales")...),
		Import:     services.NewImportService(a.store, a.options("import")...),
		Export:     services.NewExportService(a.store, a.options("export")...),
		Auth:       services.NewAuthService(a.store, tokens, a.options("auth")...),
	}
}
