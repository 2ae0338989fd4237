package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gentools-platform/gentools/internal/database"
	"github.com/gentools-platform/gentools/internal/events"
	mw "github.com/gentools-platform/gentools/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc

	// Generator handlers
	GenerateAddresses  http.HandlerFunc
	GenerateUserAgents http.HandlerFunc
	ConvertEmail       http.HandlerFunc
	GetQuota           http.HandlerFunc

	// Admin handlers
	ListUsage       http.HandlerFunc
	GetUserLimit    http.HandlerFunc
	UpsertUserLimit http.HandlerFunc
	DeleteUserLimit http.HandlerFunc
	ResetDailyUsage http.HandlerFunc
	ListAuditLogs   http.HandlerFunc

	// Auth middleware
	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
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
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
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

		if eventsClient != nil && !eventsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public) — optionally rate-limited
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

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			// Generator routes — each consumes one unit of the caller's daily quota
			r.Route("/generate", func(r chi.Router) {
				r.Post("/address", h.GenerateAddresses)
				r.Post("/user-agent", h.GenerateUserAgents)
				r.Post("/email2name", h.ConvertEmail)
			})

			// Caller's own usage across all API types
			r.Get("/quota", h.GetQuota)

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.AdminMiddleware)

				r.Get("/usage", h.ListUsage)
				r.Get("/audit", h.ListAuditLogs)

				r.Route("/users/{userID}", func(r chi.Router) {
					r.Route("/limits/{apiType}", func(r chi.Router) {
						r.Get("/", h.GetUserLimit)
						r.Put("/", h.UpsertUserLimit)
						r.Delete("/", h.DeleteUserLimit)
					})
					r.Post("/usage/{apiType}/reset", h.ResetDailyUsage)
				})
			})
		})
	})

	return r
}
