package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/email-relay/internal/auth"
	"github.com/ignite/email-relay/internal/pkg/httputil"
	"github.com/ignite/email-relay/internal/ratelimit"
)

// SetupRoutes configures the relay's HTTP surface. Every inbound request
// passes the rate governor first, then credential or webhook verification,
// then the route-specific logic.
func SetupRoutes(h *Handlers, g *ratelimit.Governor) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.MethodNotAllowed(w)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "not found")
	})

	// Health check (ungoverned, unauthenticated)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Provider webhook: governed, then envelope-verified in the handler.
		r.With(ratelimit.Middleware(g, "inbound", ratelimit.ReadPolicy)).
			Post("/inbound", h.HandleInbound)

		// Operator login: tight window against credential guessing.
		r.With(ratelimit.Middleware(g, "login", ratelimit.LoginPolicy)).
			Post("/login", h.HandleLogin)

		// Operator routes: governor first, then bearer-token auth.
		r.With(
			ratelimit.Middleware(g, "emails", ratelimit.ReadPolicy),
			auth.RequireToken(h.tokens),
		).Get("/emails", h.HandleListEmails)

		r.With(
			ratelimit.Middleware(g, "send", ratelimit.SendPolicy),
			auth.RequireToken(h.tokens),
		).Post("/send", h.HandleSend)
	})

	return r
}
