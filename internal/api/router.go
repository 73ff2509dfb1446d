package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcavoy/deckguide/internal/api/handlers"
	"github.com/jmcavoy/deckguide/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	// Progress events stream here while a generation is running.
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		guideHandler := handlers.NewGuideHandler(s.service, s.history)
		r.Route("/guides", func(r chi.Router) {
			r.Post("/", guideHandler.GenerateGuide)
			r.Get("/", guideHandler.ListGuides)
			r.Get("/{guideID}", guideHandler.GetGuide)
		})

		r.Get("/metrics", s.getMetrics)
	})
}

// healthCheck reports liveness.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getMetrics reports pipeline counters and latencies.
func (s *Server) getMetrics(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.metrics.Report())
}
