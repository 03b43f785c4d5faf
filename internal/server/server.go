package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// Server manages the HTTP server and routes
type Server struct {
	config  *common.Config
	logger  arbor.ILogger
	service *simulation.Service
	router  *http.ServeMux
	limiter *rateLimiter
	audit   *auditLog
	server  *http.Server
}

// New creates a new HTTP server over the simulation service
func New(config *common.Config, service *simulation.Service, logger arbor.ILogger) *Server {
	s := &Server{
		config:  config,
		logger:  logger,
		service: service,
		limiter: newRateLimiter(config.RateLimit),
		audit:   newAuditLog(config.Audit, logger),
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler (exposed for tests).
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.audit.Close()
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
