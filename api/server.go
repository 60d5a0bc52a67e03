/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       The client app is a browser frontend on another origin

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Liveness
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Shoppiness affiliate server running"))
	})

	// Partner routes
	r.Route("/inrdeals", func(r chi.Router) {
		r.Post("/callback", h.HandleCallback)
		r.Post("/reports/sync", h.HandleReportSync)
		r.Get("/coupons", h.GetCoupons)
		r.Get("/stores", h.GetStores)
	})

	// Client read views
	r.Route("/api/transactions", func(r chi.Router) {
		r.Get("/stats/{userId}", h.GetStats)
		r.Get("/summary/{userId}", h.GetStoreSummary)
		r.Get("/{userId}", h.ListTransactions)
	})

	// Mail pass-through
	r.Post("/send-email", h.SendEmail)

	return r
}
