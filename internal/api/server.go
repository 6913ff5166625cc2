// Package api exposes the REST surface: monitor CRUD, ad-hoc checks, result
// history and stage metadata.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mortenoh/uptimer/internal/services"
	"github.com/mortenoh/uptimer/internal/stages"
)

type Server struct {
	monitorSvc  *services.MonitorService
	limiter     *services.CheckLimiter
	registry    *stages.Registry
	corsOrigins []string
}

func NewServer(monitorSvc *services.MonitorService, limiter *services.CheckLimiter, registry *stages.Registry) *Server {
	return &Server{
		monitorSvc:  monitorSvc,
		limiter:     limiter,
		registry:    registry,
		corsOrigins: []string{"*"},
	}
}

// SetCORSOrigins configures the allowed CORS origins.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/monitors", func(r chi.Router) {
			r.Post("/", s.createMonitor)
			r.Get("/", s.listMonitors)
			r.Get("/tags", s.listTags)
			r.Post("/check-all", s.checkAllMonitors)
			r.Get("/{id}", s.getMonitor)
			r.Put("/{id}", s.updateMonitor)
			r.Delete("/{id}", s.deleteMonitor)
			r.Post("/{id}/check", s.checkMonitor)
			r.Get("/{id}/results", s.listResults)
		})
		r.Get("/stages", s.listStages)
		r.Get("/scheduler/stats", s.schedulerStats)
	})
	r.Get("/health", s.health)

	return r
}

// health reports liveness.
// GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// schedulerStats reports worker pool usage.
// GET /api/scheduler/stats
func (s *Server) schedulerStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.limiter.Stats())
}
