package api

import (
	"context"
	"net/http"
	"time"

	"github.com/brandbolt/roasrobo/internal/auth"
	"github.com/brandbolt/roasrobo/internal/config"
)

// Server represents the API server
type Server struct {
	config      config.ServerConfig
	handler     http.Handler
	handlers    *Handlers
	server      *http.Server
	authManager *auth.AuthManager
}

// NewServer creates a new API server. authManager may be nil, in which case
// all routes are open (local development).
func NewServer(cfg config.ServerConfig, handlers *Handlers, authManager *auth.AuthManager) *Server {
	router := SetupRoutes(handlers, authManager)

	return &Server{
		config:      cfg,
		handler:     router,
		handlers:    handlers,
		authManager: authManager,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Run triggers return immediately; the work happens in background
		// goroutines, so request timeouts can stay tight.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
