// Package api serves the decision engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/api/handler"
	"github.com/newthinker/compass/internal/api/middleware"
	"github.com/newthinker/compass/internal/api/response"
	"github.com/newthinker/compass/internal/metrics"
)

// Server represents the HTTP server for the decision API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	started    time.Time
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// MetricsPath exposes the registry when non-empty.
	MetricsPath string
}

// NewServer creates a new HTTP server. reg may be nil, in which case no
// metrics are recorded or exposed.
func NewServer(cfg Config, engine handler.Engine, reg *metrics.Registry, logger *zap.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{
		logger:  logger,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.setupRoutes(engine, reg, cfg.MetricsPath)

	// The metrics middleware must see the request the mux routes, so it
	// wraps the mux directly.
	var h http.Handler = s.mux
	if reg != nil {
		h = metrics.HTTPMiddleware(reg)(h)
	}
	h = middleware.Timeout(cfg.RequestTimeout)(h)
	h = middleware.Recover(logger)(h)
	h = metrics.LoggingMiddleware(logger)(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(engine handler.Engine, reg *metrics.Registry, metricsPath string) {
	regimeH := handler.NewRegimeHandler(engine)
	signalsH := handler.NewSignalsHandler(engine)
	allocH := handler.NewAllocationsHandler(engine)

	s.mux.HandleFunc("GET /api/v1/regime", regimeH.Get)
	s.mux.HandleFunc("GET /api/v1/limits", regimeH.Limits)
	s.mux.HandleFunc("GET /api/v1/signals/{ticker}", signalsH.Get)
	s.mux.HandleFunc("POST /api/v1/signals/batch", signalsH.Batch)
	s.mux.HandleFunc("POST /api/v1/allocations/validate", allocH.Validate)
	s.mux.HandleFunc("GET /api/v1/portfolios/{id}/compliance", allocH.Compliance)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if reg != nil && metricsPath != "" {
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}
