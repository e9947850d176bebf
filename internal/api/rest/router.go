package rest

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supportops/triage-gateway/internal/api/rest/handlers"
	customMiddleware "github.com/supportops/triage-gateway/internal/api/rest/middleware"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

const maxRequestSize = 1 << 20 // 1MB; webhook bodies are short text

// Router holds the HTTP router and dependencies
type Router struct {
	router   *chi.Mux
	logger   *logger.Logger
	handlers *handlers.Handlers
	cfg      *config.Config
	limiter  *customMiddleware.RateLimiter
}

// NewRouter creates a new HTTP router
func NewRouter(cfg *config.Config, log *logger.Logger, h *handlers.Handlers, counter customMiddleware.Counter) *Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	r.Use(customMiddleware.Metrics())
	r.Use(customMiddleware.SecurityHeaders())
	r.Use(customMiddleware.RequestSizeLimit(maxRequestSize))

	allowedOrigins := []string{"http://localhost:3000"}
	if originsEnv := os.Getenv("ALLOWED_ORIGINS"); originsEnv != "" {
		allowedOrigins = strings.Split(originsEnv, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Webhook-Signature", "X-Approve-Secret"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	return &Router{
		router:   r,
		logger:   log,
		handlers: h,
		cfg:      cfg,
		limiter:  customMiddleware.NewRateLimiter(counter, cfg.Security.RateLimitRPM, cfg.Security.RateLimitBurst, log),
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	// Prometheus metrics endpoint
	r.router.Handle("/metrics", promhttp.Handler())

	// Health endpoints
	r.router.Get("/health", r.handlers.Health.Health)
	r.router.Get("/ready", r.handlers.Health.Ready)

	// Webhook ingestion: signature check before the body is parsed, rate
	// limit keyed on the sender
	r.router.Group(func(router chi.Router) {
		router.Use(customMiddleware.WebhookSignature(r.cfg.Security.WebhookSecret, r.logger))
		router.Use(r.limiter.Middleware())
		router.Post("/webhook", r.handlers.Webhook.Handle)
	})

	// Approval surface
	r.router.Group(func(router chi.Router) {
		router.Use(customMiddleware.ApprovalAuth(&r.cfg.Security, r.logger))
		router.Post("/approve", r.handlers.Approval.Approve)
		router.Get("/pending/{id}", r.handlers.Approval.Get)
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.router
}
