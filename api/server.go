/*
server.go - Routes for the ledger API

MIDDLEWARE (in order):
  Logger      access log line per request
  Recoverer   a panicking handler answers 500
  RequestID   X-Request-Id, echoed in 5xx error logs
  CORS        dashboards on localhost may call the API

ROUTES:
  /healthz              liveness
  /api/users/*          one user's ledger
  /api/admin/*          whole-store runs and validation
  /api/levels           level catalog and lookups

There is no authentication. Put the service behind a gateway that guards
/api/admin and the POST routes under /api/users.

SEE ALSO:
  - handlers.go
  - cli/serve.go: server startup and shutdown
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts every handler of h on a chi router.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/{user}", h.GetLedger)
			r.Post("/{user}/awards", h.AwardRegulatory)
			r.Post("/{user}/decay", h.ApplyDecay)
			r.Post("/{user}/labs", h.EvaluateLabs)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/decay", h.DecayAll)
			r.Post("/labs", h.EvaluateLabsAll)
			r.Get("/validate", h.Validate)
			r.Post("/maintenance", h.RunMaintenance)
			r.Get("/runs", h.ListRuns)
		})

		r.Get("/levels", h.GetLevels)
	})

	return r
}
