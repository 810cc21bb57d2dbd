// Package api provides the HTTP server and routing for spec §4.4's
// schema registry surface.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ovis-hpc/ldms-registry/internal/audit"
	"github.com/ovis-hpc/ldms-registry/internal/auth"
	"github.com/ovis-hpc/ldms-registry/internal/config"
	"github.com/ovis-hpc/ldms-registry/internal/metrics"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
)

// Server is the schema registry's HTTP server.
type Server struct {
	config        *config.Config
	store         *registry.Store
	router        chi.Router
	server        *http.Server
	logger        *slog.Logger
	metrics       *metrics.Metrics
	authenticator *auth.Authenticator
	rateLimiter   *auth.RateLimiter
	auditLogger   *audit.Logger
	tlsManager    *auth.TLSManager
}

// ServerOption configures optional cross-cutting middleware.
type ServerOption func(*Server)

// WithAuth configures the authentication predicate (spec §4.4).
func WithAuth(authenticator *auth.Authenticator) ServerOption {
	return func(s *Server) { s.authenticator = authenticator }
}

// WithRateLimiter configures the token-bucket rate limiter.
func WithRateLimiter(rl *auth.RateLimiter) ServerOption {
	return func(s *Server) { s.rateLimiter = rl }
}

// WithAudit configures schema lifecycle event logging.
func WithAudit(al *audit.Logger) ServerOption {
	return func(s *Server) { s.auditLogger = al }
}

// WithTLS configures the listener's certificate manager; Start serves
// HTTPS when set, matching spec §4.4's "if both keyfile and certfile
// are configured, the listener is HTTPS".
func WithTLS(tm *auth.TLSManager) ServerOption {
	return func(s *Server) { s.tlsManager = tm }
}

// NewServer builds a Server over store.
func NewServer(cfg *config.Config, store *registry.Store, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:  cfg,
		store:   store,
		logger:  logger,
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRouter()
	return s
}

// Metrics returns the metrics instance for recording custom metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	if s.auditLogger != nil {
		r.Use(s.auditLogger.Middleware(auth.Username))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripSlashes)

	h := NewHandler(s.store, s.metrics)

	r.Get("/", h.HealthCheck)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		if s.authenticator != nil {
			r.Use(s.authenticator.Middleware)
		}
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.Middleware)
		}

		r.Post("/", h.AddSchema)

		r.Get("/schemas/ids/{id}", h.GetSchema)
		r.Delete("/schemas/ids/{id}", h.DeleteSchema)

		for _, prefix := range []string{"/names", "/subjects"} {
			r.Get(prefix, h.ListNames)
			r.Delete(prefix+"/{name}", h.DeleteByName)
			r.Get(prefix+"/{name}/versions", h.ListVersionsByName)
			r.Post(prefix+"/{name}/versions", h.AddSchemaByName)
		}

		r.Get("/digests", h.ListDigests)
		r.Get("/digests/{digest}/versions", h.ListVersionsByDigest)
	})

	s.router = r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Start serves the registered routes on the configured listen address,
// HTTPS if WithTLS was supplied (spec §4.4).
func (s *Server) Start() error {
	addr := s.config.SchemaRegistry.Listen
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if s.tlsManager != nil {
		s.server.TLSConfig = s.tlsManager.TLSConfig()
		s.logger.Info("starting server with TLS", slog.String("address", addr))
		return s.server.ListenAndServeTLS("", "")
	}

	s.logger.Info("starting server", slog.String("address", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the HTTP router for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Address returns the server's advertised address.
func (s *Server) Address() string {
	scheme := "http"
	if s.tlsManager != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, s.config.SchemaRegistry.Listen)
}
