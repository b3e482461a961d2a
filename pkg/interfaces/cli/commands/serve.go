package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"github.com/vsinha/stockroom/pkg/infrastructure/logging"
	"github.com/vsinha/stockroom/pkg/infrastructure/messaging"
	"github.com/vsinha/stockroom/pkg/infrastructure/metrics"
	"github.com/vsinha/stockroom/pkg/interfaces/web"
	"github.com/vsinha/stockroom/pkg/interfaces/web/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON API, the /ws/events live feed and, when enabled, /metrics.

The server drains in-flight requests on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if port > 0 {
				a.cfg.Server.Port = port
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}

// subscribe attaches handler to the bus for eventTypes
func subscribe(bus events.EventStore, handler events.EventHandler, eventTypes ...string) error {
	if len(eventTypes) == 0 {
		eventTypes = []string{events.AllEvents}
	}
	if err := bus.Subscribe(eventTypes, handler); err != nil {
		return fmt.Errorf("failed to subscribe %T: %w", handler, err)
	}
	return nil
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	invalidator := cache.NewInvalidator(a.cache, logging.Component(logger, "cache"))
	if err := subscribe(a.bus, invalidator, invalidator.EventTypes()...); err != nil {
		return err
	}

	hub := websocket.NewHub(logging.Component(logger, "ws"))
	if err := subscribe(a.bus, hub); err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if err := subscribe(a.bus, m); err != nil {
			return err
		}
	}

	if cfg.Events.NATSURL != "" {
		forwarder, err := messaging.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logging.Component(logger, "nats"))
		if err != nil {
			return err
		}
		defer forwarder.Close()
		if err := subscribe(a.bus, forwarder); err != nil {
			return err
		}
	}

	router := web.NewRouter(web.RouterConfig{
		Services:    a.services(),
		Logger:      logging.Component(logger, "http"),
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		Hub:         hub,
	})

	serverCfg := web.DefaultServerConfig()
	serverCfg.Address = cfg.Server.Addr()
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	server, err := web.NewServer(serverCfg, router, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
