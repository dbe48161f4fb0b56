package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/notify"
	"github.com/alanyoungcy/ghostodds/internal/oracle"
	"github.com/alanyoungcy/ghostodds/internal/server"
	"github.com/alanyoungcy/ghostodds/internal/server/handler"
	"github.com/alanyoungcy/ghostodds/internal/server/ws"
	"github.com/alanyoungcy/ghostodds/internal/service"
)

// ServerMode runs the full API server: the HTTP surface, the WebSocket hub,
// the notification watcher, and, when enabled, the periodic event archiver.
// It blocks until the context is cancelled or a component fails.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub — requires the event bus; dev mode has none.
	var hub *ws.Hub
	if deps.EventBus != nil {
		hub = ws.NewHub(deps.EventBus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		watcher := notify.NewWatcher(deps.EventBus, deps.Notifier, a.logger)
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	// Periodic event archival to S3.
	if deps.Archiver != nil {
		interval := a.cfg.Archive.Interval.Duration
		g.Go(func() error {
			deps.Archiver.RunPeriodically(ctx, interval)
			return nil
		})
	}

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// DevMode runs the same API surface against in-memory state. Nothing is
// durable and the event bus, cache, and rate limiter are absent.
func (a *App) DevMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Warn("dev mode: state is in-memory and lost on exit")
	return a.ServerMode(ctx, deps)
}

// startHTTPServer adds the HTTP server goroutine plus its graceful-shutdown
// companion to the given errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	logger := a.logger

	markets := service.NewMarketService(deps.MarketStore, deps.MarketCache, logger)

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(logger),
		Platform:  handler.NewPlatformHandler(deps.Engine, deps.PlatformStore, logger),
		Markets:   handler.NewMarketHandler(deps.Engine, markets, deps.EventStore, logger),
		Trades:    handler.NewTradeHandler(deps.Engine, logger),
		Resolve:   handler.NewResolveHandler(deps.Engine, logger),
		Redeem:    handler.NewRedeemHandler(deps.Engine, logger),
		Positions: handler.NewPositionHandler(deps.PositionStore, logger),
	}

	// The static price source only exists in dev mode; expose the endpoint
	// that feeds it so oracle markets can resolve there.
	if static, ok := deps.Prices.(*oracle.StaticSource); ok {
		handlers.Dev = handler.NewDevHandler(static, logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		AuthMaxSkew: a.cfg.Server.AuthMaxSkew.Duration,
	}, handlers, hub, deps.RateLimiter, domain.SystemClock(), logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		timeout := a.cfg.Server.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
