package rest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bioinformaticstoolsmith/identity/pkg/api/rest/middleware"
	"github.com/bioinformaticstoolsmith/identity/pkg/config"
)

// Config holds the REST server configuration.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
}

// FromRESTConfig adapts a config.RESTConfig into the Config this package
// expects, pulling out the auth and rate-limit sub-configs.
func FromRESTConfig(r config.RESTConfig) Config {
	return Config{
		Host:        r.Host,
		Port:        r.Port,
		CORSEnabled: r.CORSEnabled,
		CORSOrigins: r.CORSOrigins,
		Auth: middleware.AuthConfig{
			JWTSecret:   r.JWTSecret,
			Enabled:     r.AuthEnabled,
			PublicPaths: r.PublicPaths,
			AdminPaths:  r.AdminPaths,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        r.RateLimitEnabled,
			RequestsPerSec: r.RateLimitPerSec,
			Burst:          r.RateLimitBurst,
			PerIP:          r.RateLimitPerIP,
			PerUser:        r.RateLimitPerUser,
			GlobalLimit:    r.RateLimitGlobal,
		},
	}
}

// Server is the REST API server: an HTTP mux wired directly into the
// scoring, clustering, and training packages, with no RPC layer between
// the handler and the domain code it drives.
type Server struct {
	config     Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new REST API server over the given domain config.
func NewServer(restConfig Config, domainCfg *config.Config) (*Server, error) {
	handler, err := NewHandler(domainCfg)
	if err != nil {
		return nil, fmt.Errorf("creating REST handler: %w", err)
	}

	server := &Server{
		config:  restConfig,
		handler: handler,
		mux:     http.NewServeMux(),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", restConfig.Host, restConfig.Port),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/stats", s.handler.GetStats)

	s.mux.HandleFunc("/v1/score", s.handler.Score)
	s.mux.HandleFunc("/v1/score/batch", s.handler.ScoreBatch)
	s.mux.HandleFunc("/v1/cluster", s.handler.Cluster)
	s.mux.HandleFunc("/v1/train", s.handler.Train)

	s.mux.HandleFunc("/docs", ServeSwaggerUI)
	s.mux.HandleFunc("/docs/openapi.yaml", ServeDocs)
}

// withMiddleware wraps the handler with all middleware, innermost first:
// logging, then CORS, then rate limiting, then auth. Auth is therefore
// the outermost layer and runs first; logging runs last before the
// handler.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = loggingMiddleware(handler)

	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	return handler
}

// Start starts the REST API server.
func (s *Server) Start() error {
	log.Printf("Starting REST API server on %s:%d", s.config.Host, s.config.Port)
	log.Printf("API documentation available at http://%s:%d/docs", s.config.Host, s.config.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Shutting down REST API server...")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs all HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
