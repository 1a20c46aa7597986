/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/fee-earners/*   Workload, settings, availability per fee earner
  /api/availability/*  Block edits and soft-deletes by block ID
  /api/matters/*       Matter registration, recommendations, assignment

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Fee earner routes
		r.Route("/fee-earners/{id}", func(r chi.Router) {
			r.Get("/workload", h.GetWorkload)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpsertSettings)
			r.Get("/availability", h.ListAvailability)
			r.Post("/availability", h.CreateAvailability)
		})

		// Availability block routes (by block ID)
		r.Route("/availability", func(r chi.Router) {
			r.Put("/{id}", h.UpdateAvailability)
			r.Delete("/{id}", h.DeleteAvailability)
		})

		// Matter routes
		r.Route("/matters", func(r chi.Router) {
			r.Post("/", h.CreateMatter)
			r.Get("/{id}", h.GetMatter)
			r.Get("/{id}/recommendations", h.GetRecommendations)
			r.Post("/{id}/auto-assign", h.AutoAssign)
			r.Post("/{id}/assign", h.ManualAssign)
		})
	})

	return r
}
