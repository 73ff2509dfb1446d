// Package api provides the REST server exposing the guide pipeline.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jmcavoy/deckguide/internal/api/handlers"
	"github.com/jmcavoy/deckguide/internal/api/websocket"
	"github.com/jmcavoy/deckguide/internal/metrics"
)

// Config holds configuration for the API server.
type Config struct {
	Port int
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{Port: 8080}
}

// Server is the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int

	wsHub   *websocket.Hub
	service handlers.GuideService
	history handlers.HistoryReader
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

// NewServer creates the API server. history may be nil when persistence is
// disabled; metrics may be nil.
func NewServer(cfg *Config, service handlers.GuideService, history handlers.HistoryReader, m *metrics.Pipeline, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:  chi.NewRouter(),
		port:    cfg.Port,
		wsHub:   websocket.NewHub(logger),
		service: service,
		history: history,
		metrics: m,
		logger:  logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Hub returns the websocket hub so the pipeline can publish progress events.
func (s *Server) Hub() *websocket.Hub {
	return s.wsHub
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// Generation holds the connection through several upstream calls, so the
	// ceiling is generous.
	s.router.Use(middleware.Timeout(5 * time.Minute))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// Start runs the websocket hub and serves HTTP until Shutdown.
func (s *Server) Start() error {
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server listening", "port", s.port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
