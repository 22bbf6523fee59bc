package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/database"
	"github.com/leasedesk/leasedesk/internal/events"
	mw "github.com/leasedesk/leasedesk/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc

	// API key handlers
	ShowAPIKey   http.HandlerFunc
	RotateAPIKey http.HandlerFunc

	// Upload handlers
	Upload      http.HandlerFunc
	ListUploads http.HandlerFunc
	GetUpload   http.HandlerFunc
	GetQuota    http.HandlerFunc

	// Billing handlers
	CreateCheckout http.HandlerFunc
	CreatePortal   http.HandlerFunc
	StripeWebhook  http.HandlerFunc

	// Audit handlers
	ListAudit http.HandlerFunc

	// AuthMiddleware authenticates by bearer token; APIAuthMiddleware also
	// accepts X-API-Key on the API surface.
	AuthMiddleware    func(http.Handler) http.Handler
	APIAuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		api.JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Stripe webhook (public, signature-verified, raw body)
	r.Post("/stripe/webhook", h.StripeWebhook)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public) — rate-limited per client IP
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Bearer-only routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/keys", func(r chi.Router) {
				r.Get("/", h.ShowAPIKey)
				r.Post("/rotate", h.RotateAPIKey)
			})

			r.Route("/billing", func(r chi.Router) {
				r.Post("/checkout", h.CreateCheckout)
				r.Post("/portal", h.CreatePortal)
			})

			r.Get("/audit", h.ListAudit)
		})

		// API surface — bearer token or X-API-Key
		r.Group(func(r chi.Router) {
			r.Use(h.APIAuthMiddleware)

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", h.Upload)
				r.Get("/", h.ListUploads)
				r.Get("/{id}", h.GetUpload)
			})

			r.Get("/quota", h.GetQuota)
		})
	})

	return r
}
