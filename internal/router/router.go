// Package router sets up the HTTP routes and middleware chain for the
// meme server: the wildcard image endpoint, the JSON template catalog,
// and the health check.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"memeforge/internal/handlers"
	"memeforge/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and routes wired up. limiter may be nil to disable rate limiting.
func New(images *handlers.Images, templates *handlers.Templates, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Health check — outside the rate limit.
	r.Get("/health", healthHandler)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		// Template catalog.
		r.Get("/templates", templates.List)
		r.Get("/templates/{id}", templates.Detail)

		// Image rendering. The slug spans path segments, so the route is a
		// wildcard and the handler parses the remainder itself.
		r.Get("/images/*", images.Serve)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
