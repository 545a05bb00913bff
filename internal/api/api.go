// Package api exposes the pipeline workflow as a REST surface. Every stage
// mutation routes through the transition orchestrator; handlers never touch
// lead stages directly.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/medhirweb/salespipe/internal/config"
	"github.com/medhirweb/salespipe/internal/store"
	"github.com/medhirweb/salespipe/internal/transition"
)

// Server holds the handler dependencies.
type Server struct {
	store store.Store
	orch  *transition.Orchestrator
	auth  *Authenticator
	cfg   config.ServerConfig
}

// NewServer creates a Server.
func NewServer(st store.Store, orch *transition.Orchestrator, auth *Authenticator, cfg config.ServerConfig) *Server {
	return &Server{store: st, orch: orch, auth: auth, cfg: cfg}
}

// Router builds the chi mux with auth, CORS, and rate limiting applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	limiter := newRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(limiter.Middleware)

		r.Route("/stages", func(r chi.Router) {
			r.Get("/", s.listStages)
			r.Post("/", s.createStage)
			r.Delete("/{stageID}", s.deleteStage)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.listLeads)
			r.Post("/", s.createLead)
			r.Put("/freeze/{leadID}", s.freezeLead)

			r.Route("/{leadID}", func(r chi.Router) {
				r.Get("/", s.getLead)
				r.Put("/", s.updateLead)
				r.Patch("/stage/{stageID}", s.moveLead)
				r.Post("/lost", s.markLost)
				r.Post("/junk", s.markJunk)
				r.Post("/convert", s.convertLead)
				r.Get("/activities", s.listActivities)
				r.Post("/activities", s.createActivity)
				r.Get("/activity-logs", s.listActivityLogs)
			})
		})

		r.Route("/activities/{activityID}", func(r chi.Router) {
			r.Put("/", s.updateActivity)
			r.Post("/done", s.completeActivity)
			r.Delete("/", s.deleteActivity)
		})
	})

	return r
}
