package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/leasedesk/leasedesk/internal/apikeys"
	"github.com/leasedesk/leasedesk/internal/audit"
	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/billing"
	"github.com/leasedesk/leasedesk/internal/config"
	"github.com/leasedesk/leasedesk/internal/database"
	"github.com/leasedesk/leasedesk/internal/events"
	"github.com/leasedesk/leasedesk/internal/extraction"
	mw "github.com/leasedesk/leasedesk/internal/middleware"
	"github.com/leasedesk/leasedesk/internal/ratelimit"
	iredis "github.com/leasedesk/leasedesk/internal/redis"
	"github.com/leasedesk/leasedesk/internal/server"
	"github.com/leasedesk/leasedesk/internal/storage"
	"github.com/leasedesk/leasedesk/internal/uploads"
	"github.com/leasedesk/leasedesk/internal/usage"
	"github.com/leasedesk/leasedesk/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
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
		slog.Error("migrating database", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
	}

	// Rate limiting
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		limiter = ratelimit.NewRedisLimiter(redisClient)
	default:
		pgLimiter := ratelimit.NewPostgresLimiter(pool)
		sweeper := ratelimit.NewSweeper(pool)
		if err := sweeper.Start(); err != nil {
			slog.Error("starting rate limit sweeper", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
		limiter = pgLimiter
	}
	slog.Info("rate limiting configured", "backend", limiter.Backend())

	// Artifact storage
	var store storage.ArtifactStore
	switch cfg.Storage.Backend {
	case "s3":
		store, err = storage.NewS3Store(cfg.Storage)
	default:
		store, err = storage.NewLocalStore(cfg.Upload.LocalDir)
	}
	if err != nil {
		slog.Error("initializing artifact store", "error", err)
		os.Exit(1)
	}
	slog.Info("artifact storage configured", "backend", store.Backend())

	// Lease extraction
	textExtractor := extraction.NewPDFTextExtractor()
	var llm extraction.DocumentExtractor = extraction.StubExtractor{}
	if cfg.Extraction.Enabled && cfg.Extraction.GeminiAPIKey != "" {
		llm = extraction.NewGeminiExtractor(cfg.Extraction.GeminiAPIKey, cfg.Extraction.GeminiModel)
		slog.Info("lease extraction enabled", "model", cfg.Extraction.GeminiModel)
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

	// API keys
	keyRepo := apikeys.NewRepository(pool)
	keySvc := apikeys.NewService(keyRepo)
	keyHandler := apikeys.NewHandler(keySvc, userSvc)

	authHandler := auth.NewHandler(authSvc, userSvc, keySvc, publisher)

	// Usage ledger
	usageRepo := usage.NewRepository(pool)
	ledger := usage.NewLedger(usageRepo)

	// Uploads
	uploadRepo := uploads.NewRepository(pool)
	uploadSvc := uploads.NewService(uploadRepo, keySvc, ledger, limiter, store, pool, textExtractor, llm, publisher, cfg.Upload.MaxFileSizeBytes())
	uploadHandler := uploads.NewHandler(uploadSvc, cfg.Upload.MaxFileSizeBytes())

	// Billing
	stripeProvider := billing.NewStripeProvider(cfg.Stripe)
	billingSvc := billing.NewService(userSvc, keySvc, publisher, cfg.Stripe)
	billingHandler := billing.NewHandler(stripeProvider, billingSvc, cfg.Stripe)

	// Audit
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, natsClient.JetStream())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	bearerMiddleware := auth.Middleware(authSvc)

	// Router
	router := server.NewRouter(pool, natsClient, server.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AuthRateLimiter:    mw.AuthRateLimit(limiter, cfg.RateLimit.AuthPerMinute),
	}, server.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		ShowAPIKey:   keyHandler.Show,
		RotateAPIKey: keyHandler.Rotate,

		Upload:      uploadHandler.Upload,
		ListUploads: uploadHandler.List,
		GetUpload:   uploadHandler.Get,
		GetQuota:    uploadHandler.Quota,

		CreateCheckout: billingHandler.CreateCheckout,
		CreatePortal:   billingHandler.CreatePortal,
		StripeWebhook:  billingHandler.Webhook,

		ListAudit: auditHandler.List,

		AuthMiddleware:    bearerMiddleware,
		APIAuthMiddleware: mw.APIKeyAuth(keySvc, userSvc, bearerMiddleware),
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
