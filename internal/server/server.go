// Package server exposes the market feed over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/server/handler"
	"github.com/alanyoungcy/marketfeed/internal/server/middleware"
	"github.com/alanyoungcy/marketfeed/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // guards the sync trigger; empty disables auth
	// RateLimitPerMinute bounds requests per client IP; zero disables.
	RateLimitPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Sync    *handler.SyncHandler
	Status  *handler.StatusHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      Routes(cfg, handlers, limiter, wsHub, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Routes builds the full handler chain.
func Routes(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	api := http.NewServeMux()

	// Market feed, served at the root and under /api.
	for _, prefix := range []string{"", "/api"} {
		api.HandleFunc("GET "+prefix+"/markets", handlers.Markets.ListMarkets)
		api.HandleFunc("GET "+prefix+"/markets/{id}", handlers.Markets.GetMarket)
		api.HandleFunc("GET "+prefix+"/categories", handlers.Markets.ListCategories)
		api.HandleFunc("GET "+prefix+"/sports-subcategories", handlers.Markets.ListSportsSubcategories)
	}

	api.Handle("POST /api/sync/trigger", middleware.Auth(cfg.APIKey)(http.HandlerFunc(handlers.Sync.TriggerSync)))
	if handlers.Status != nil {
		api.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}

	limited := middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute, logger)(api)

	// Operational routes bypass the rate limiter.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}
	mux.Handle("/", limited)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
