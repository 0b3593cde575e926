package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	behandlingapp "github.com/tilbakekreving/backend/internal/application/behandling"
	iverksettelseapp "github.com/tilbakekreving/backend/internal/application/iverksettelse"
	kravgrunnlagapp "github.com/tilbakekreving/backend/internal/application/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/infrastructure/auth"
	"github.com/tilbakekreving/backend/internal/infrastructure/cache"
	"github.com/tilbakekreving/backend/internal/infrastructure/config"
	"github.com/tilbakekreving/backend/internal/infrastructure/event"
	"github.com/tilbakekreving/backend/internal/infrastructure/logger"
	"github.com/tilbakekreving/backend/internal/infrastructure/oppdrag"
	"github.com/tilbakekreving/backend/internal/infrastructure/persistence"
	"github.com/tilbakekreving/backend/internal/infrastructure/telemetry"
	"github.com/tilbakekreving/backend/internal/interfaces/http/handler"
	"github.com/tilbakekreving/backend/internal/interfaces/http/middleware"
	"github.com/tilbakekreving/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Tilbakekreving Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Install trace propagation and, when enabled, span export. The
	// propagator is always installed so trace ids from upstream callers
	// show up in the request logs.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Tracing.Enabled,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
		SamplingRatio:     cfg.Tracing.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	serializer := event.NewBehandlingSerializer()
	hendelseLogg := persistence.NewGormHendelseLogg(db.DB, serializer)
	mottakRepo := persistence.NewGormMottakRepository(db.DB)
	utsendingRepo := persistence.NewGormUtsendingRepository(db.DB)

	// Attestation commits the decision event and queues the dispatch entry
	// in one database transaction
	ferdigstiller := persistence.NewTransaksjonellFerdigstillelse(db.DB, hendelseLogg, utsendingRepo)

	// Initialize application services
	mottakService := kravgrunnlagapp.NewMottakService(mottakRepo, log)
	behandlingService := behandlingapp.NewBehandlingService(hendelseLogg, mottakRepo, ferdigstiller, log)
	utsendingQueryService := iverksettelseapp.NewUtsendingQueryService(utsendingRepo)

	// JWT verification for tokens issued by the identity provider
	jwtService := auth.NewJWTService(cfg.JWT)

	// Token blacklist backed by Redis; revocation checks are skipped when
	// Redis is not reachable at startup
	var tokenBlacklist auth.TokenBlacklist
	if blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		log.Warn("Token blacklist unavailable, revocation checks disabled", zap.Error(err))
	} else {
		tokenBlacklist = blacklist
	}

	// Start the background dispatch worker when enabled. The worker drains
	// the queue of attested decisions towards the remote recovery system.
	var dispatcher *iverksettelseapp.Dispatcher
	if cfg.Dispatch.Enabled {
		oppdragCfg := &oppdrag.ClientConfig{
			BaseURL:      cfg.Oppdrag.BaseURL,
			SendPath:     cfg.Oppdrag.SendPath,
			TokenURL:     cfg.Oppdrag.TokenURL,
			ClientID:     cfg.Oppdrag.ClientID,
			ClientSecret: cfg.Oppdrag.ClientSecret,
			Timeout:      cfg.Oppdrag.Timeout,
			TokenLeeway:  cfg.Oppdrag.TokenLeeway,
		}
		tokens := oppdrag.NewClientCredentialsProvider(oppdragCfg)
		klient, err := oppdrag.NewHTTPKlient(oppdragCfg, tokens)
		if err != nil {
			log.Fatal("Failed to create oppdrag client", zap.Error(err))
		}

		vaktFactory := cache.NewSendevaktFactory(cfg.Redis, cache.WithLogger(log))
		vakt, err := vaktFactory.CreateVakt()
		if err != nil {
			log.Fatal("Failed to create dispatch guard", zap.Error(err))
		}

		dispatcher = iverksettelseapp.NewDispatcher(utsendingRepo, klient, vakt, iverksettelseapp.DispatcherConfig{
			BatchSize:    cfg.Dispatch.BatchSize,
			PollInterval: cfg.Dispatch.PollInterval,
			GuardTTL:     cfg.Dispatch.GuardTTL,
		}, log)
		if err := dispatcher.Start(context.Background()); err != nil {
			log.Fatal("Failed to start dispatch worker", zap.Error(err))
		}
	} else {
		log.Info("Dispatch worker disabled by configuration")
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom validators
	middleware.SetupValidator()

	// Create Gin engine without default middleware
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Global middleware stack (order matters):
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Start server spans, continue inbound trace context
	// 4. Logger - Log requests (with trace correlation from 3)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.App.Name))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config. ETag is exposed because command responses
	// carry the new stream version in it.
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes.
	// There is no login endpoint; tokens come from the external identity
	// provider, so only health and ping endpoints are public.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/health",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	r.Use(middleware.TracingAttributes())

	// Register domain handlers
	r.Register(handler.NewKravgrunnlagHandler(mottakService)).
		Register(handler.NewBehandlingHandler(behandlingService)).
		Register(handler.NewUtsendingHandler(utsendingQueryService)).
		Register(handler.NewSystemHandler(db.DB, version))

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Stop the dispatch worker after the HTTP server so no request can
	// queue work that nothing is draining
	if dispatcher != nil {
		if err := dispatcher.Stop(ctx); err != nil {
			log.Error("Dispatch worker forced to stop", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
