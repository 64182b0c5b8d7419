// Package api provides the HTTP API of the weather dashboard.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/api/handler"
	"github.com/weatherdash/weatherdash/internal/api/middleware"
	"github.com/weatherdash/weatherdash/internal/api/response"
	"github.com/weatherdash/weatherdash/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	// Controller owns the analytics view (required).
	Controller *analytics.Controller

	// Registry reports upstream health on the ops endpoints (optional).
	Registry *resilience.Registry

	// AllowedOrigins for CORS and websocket connections. Defaults to "*".
	AllowedOrigins []string

	// RequireTLS rejects plain-HTTP requests forwarded by a load balancer.
	RequireTLS bool

	// QueryRateLimit overrides middleware.QueryRateLimit (optional).
	QueryRateLimit *middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing())            // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path))
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Controller)
	analyticsHandler := handler.NewAnalyticsHandler(cfg.Controller, cfg.Logger)
	streamCfg := handler.DefaultStreamConfig()
	streamCfg.AllowedOrigins = origins
	streamHandler := handler.NewStreamHandler(cfg.Controller, streamCfg, cfg.Logger)

	queryLimit := middleware.QueryRateLimit
	if cfg.QueryRateLimit != nil {
		queryLimit = *cfg.QueryRateLimit
	}
	queryRateLimit := middleware.RateLimitByIP(queryLimit)                      // 30 req/min by default
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", analyticsHandler.GetView)
			r.With(standardRateLimit, middleware.RequireJSON).Put("/filter", analyticsHandler.SetFilter)
			// Each query reaches the analytics service
			r.With(queryRateLimit, middleware.RequireJSON).Post("/query", analyticsHandler.RunQuery)
			r.With(standardRateLimit).Get("/export", analyticsHandler.Export)
			r.Get("/stream", streamHandler.ServeHTTP)
		})
	})

	return r
}
