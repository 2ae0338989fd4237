package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gentools-platform/gentools/internal/admin"
	"github.com/gentools-platform/gentools/internal/api"
	"github.com/gentools-platform/gentools/internal/audit"
	"github.com/gentools-platform/gentools/internal/auth"
	"github.com/gentools-platform/gentools/internal/config"
	"github.com/gentools-platform/gentools/internal/database"
	"github.com/gentools-platform/gentools/internal/events"
	"github.com/gentools-platform/gentools/internal/generators"
	"github.com/gentools-platform/gentools/internal/middleware"
	"github.com/gentools-platform/gentools/internal/quota"
	iredis "github.com/gentools-platform/gentools/internal/redis"
	"github.com/gentools-platform/gentools/internal/server"
	"github.com/gentools-platform/gentools/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS — the server stays up without it, audit events are just dropped
	var auditPublisher quota.AuditPublisher
	var usagePublisher generators.UsagePublisher
	eventsClient, err := events.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Warn("connecting to nats, audit events disabled", "error", err)
		eventsClient = nil
	} else {
		defer eventsClient.Close()
		publisher := events.NewPublisher(eventsClient.JetStream())
		auditPublisher = publisher
		usagePublisher = publisher
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Quota
	quotaRepo := quota.NewRepository(pool)
	quotaSvc, err := quota.NewService(quotaRepo, cfg.Quota, auditPublisher)
	if err != nil {
		slog.Error("creating quota service", "error", err)
		os.Exit(1)
	}

	// Generators
	genHandler := generators.NewHandler(quotaSvc, usagePublisher)

	// Admin
	auditRepo := audit.NewRepository(pool)
	adminHandler := admin.NewHandler(quotaSvc, auditRepo)

	// Audit consumer — persists audit events published over NATS
	if eventsClient != nil {
		consumerMgr := events.NewConsumerManager(eventsClient.JetStream())
		auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
		go func() {
			if err := auditConsumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Login/register brute-force limiter, keyed by client IP
	authLimiter := middleware.NewRateLimiter(redisClient, 10, 60)

	// Router
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GenerateAddresses:  genHandler.GenerateAddresses,
		GenerateUserAgents: genHandler.GenerateUserAgents,
		ConvertEmail:       genHandler.ConvertEmail,
		GetQuota:           genHandler.GetQuota,

		ListUsage:       adminHandler.ListUsage,
		GetUserLimit:    adminHandler.GetUserLimit,
		UpsertUserLimit: adminHandler.UpsertUserLimit,
		DeleteUserLimit: adminHandler.DeleteUserLimit,
		ResetDailyUsage: adminHandler.ResetDailyUsage,
		ListAuditLogs:   adminHandler.ListAuditLogs,

		AuthMiddleware:  auth.Middleware(authSvc),
		AdminMiddleware: auth.AdminMiddleware,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
