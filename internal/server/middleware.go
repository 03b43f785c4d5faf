package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/cogsim/internal/handlers"
)

// withMiddleware wraps the router with the middleware chain
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = s.rateLimitMiddleware(handler)
	handler = s.apiKeyMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.auditMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// apiKeyMiddleware gates every endpoint on X-API-Key when an expected key
// is configured. No configured key means auth is disabled (dev mode).
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.config.Auth.APIKey
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("X-API-Key") != expected {
			handlers.WriteAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED",
				"Unauthorized: invalid or missing X-API-Key", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects with 429 once a key exceeds its window.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			handlers.WriteAPIError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"Rate limit exceeded",
				fmt.Sprintf("max %d requests per %ds", s.limiter.maxRequests, s.limiter.windowSec))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and responses
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logEvent := s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr)
		if r.URL.RawQuery != "" {
			logEvent.Str("query", r.URL.RawQuery)
		}
		logEvent.Msg("HTTP request")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("HTTP response")
	})
}

// auditMiddleware appends one JSONL audit line per request, including
// requests refused by auth or the limiter.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.audit.Record(r, rw.statusCode, time.Since(start))
	})
}

// recoveryMiddleware recovers from panics and returns 500 error
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error().
					Str("error", fmt.Sprintf("%v", err)).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				handlers.WriteAPIError(w, http.StatusInternalServerError, "INTERNAL",
					"Internal server error", "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
