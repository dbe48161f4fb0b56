// Package server exposes the market engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/ghostodds/internal/crypto"
	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/server/handler"
	"github.com/alanyoungcy/ghostodds/internal/server/middleware"
	"github.com/alanyoungcy/ghostodds/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// RateLimit requests per RateWindow per client IP. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration

	// AuthMaxSkew bounds how far a signed request timestamp may drift from
	// the server clock.
	AuthMaxSkew time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Platform  *handler.PlatformHandler
	Markets   *handler.MarketHandler
	Trades    *handler.TradeHandler
	Resolve   *handler.ResolveHandler
	Redeem    *handler.RedeemHandler
	Positions *handler.PositionHandler

	// Dev is set only in dev mode; its routes are not registered otherwise.
	Dev *handler.DevHandler
}

// Server is the HTTP + WebSocket API server for the market platform.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. Mutating routes are
// wrapped with signature authentication; read routes are open. The limiter
// may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, clock domain.Clock, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	signed := func(op string, h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireSigned(op, clock, cfg.AuthMaxSkew)(h)
	}

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Platform endpoints.
	mux.HandleFunc("GET /api/platform", handlers.Platform.GetPlatform)
	mux.HandleFunc("POST /api/platform/init", signed(crypto.OpInitPlatform, handlers.Platform.InitPlatform))

	// Market lifecycle endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/events", handlers.Markets.ListEvents)
	mux.HandleFunc("POST /api/markets", signed(crypto.OpCreateMarket, handlers.Markets.CreateMarket))
	mux.HandleFunc("POST /api/markets/{id}/cancel", signed(crypto.OpCancel, handlers.Markets.CancelMarket))
	mux.HandleFunc("POST /api/markets/{id}/resolve", signed(crypto.OpResolve, handlers.Resolve.Resolve))

	// Trading endpoints.
	mux.HandleFunc("POST /api/markets/{id}/buy", signed(crypto.OpBuy, handlers.Trades.Buy))
	mux.HandleFunc("POST /api/markets/{id}/sell", signed(crypto.OpSell, handlers.Trades.Sell))

	// Redemption endpoints.
	mux.HandleFunc("POST /api/markets/{id}/redeem", signed(crypto.OpRedeem, handlers.Redeem.RedeemWinnings))
	mux.HandleFunc("POST /api/markets/{id}/redeem-cancelled", signed(crypto.OpRedeemCancelled, handlers.Redeem.RedeemCancelled))

	// Position endpoints.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListByUser)
	mux.HandleFunc("GET /api/markets/{id}/positions", handlers.Positions.ListByMarket)

	// Dev-only endpoints.
	if handlers.Dev != nil {
		mux.HandleFunc("POST /api/dev/price", handlers.Dev.SetPrice)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
