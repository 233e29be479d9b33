// Package api provides the HTTP gateway of the GoodBooks API: huma operations on a chi
// router with API-key auth, rate limiting, request logging and metrics.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/goodbooks-api/internal/metrics"
	"github.com/listenupapp/goodbooks-api/internal/ratelimit"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// apiKeyHeader carries the shared write secret.
const apiKeyHeader = "x-api-key"

// Options configures the gateway.
type Options struct {
	// APIKey guards write operations. Required.
	APIKey string
	// Limiter throttles requests per client IP. Nil disables rate limiting.
	Limiter ratelimit.Limiter
	// Metrics records request counters. A fresh registry is used when nil.
	Metrics *metrics.Metrics
	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	opts     Options
	metrics  *metrics.Metrics
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	s := &Server{
		store:    st,
		services: services,
		opts:     opts,
		metrics:  opts.Metrics,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("GoodBooks API", Version)
	humaConfig.Info.Description = "Read and rating API over the goodbooks-10k dataset."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"apiKey": {
			Type: "apiKey",
			In:   "header",
			Name: apiKeyHeader,
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack. The observer sits outside the recoverer
// so that panics are logged and counted as 500s.
func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match", apiKeyHeader},
			ExposedHeaders: []string{"ETag", "Retry-After", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			MaxAge:         300,
		}))
	}
	if s.opts.Limiter != nil {
		s.router.Use(s.rateLimit)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerMetricsRoutes()
	s.registerBookRoutes()
	s.registerAuthorRoutes()
	s.registerTagRoutes()
	s.registerRatingRoutes()
	s.registerReadingListRoutes()
}
