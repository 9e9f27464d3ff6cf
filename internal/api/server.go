package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/ratelimit"
)

// Server is the relay's HTTP server.
type Server struct {
	cfg      config.ServerConfig
	router   *chi.Mux
	handlers *Handlers
	server   *http.Server
}

// NewServer assembles the router around the given handlers and governor.
func NewServer(cfg config.ServerConfig, h *Handlers, g *ratelimit.Governor) *Server {
	return &Server{
		cfg:      cfg,
		router:   SetupRoutes(h, g),
		handlers: h,
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.GetHost(), s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
