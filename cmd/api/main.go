package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thirdplace-webhooks/config"
	httpHandler "thirdplace-webhooks/internal/adapter/http/handler"
	pgStorage "thirdplace-webhooks/internal/adapter/storage/postgres"
	redisStorage "thirdplace-webhooks/internal/adapter/storage/redis"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/internal/service"
	"thirdplace-webhooks/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Thirdplace Webhooks dispatcher")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Redis backs the delivery claim store and the rate limiter. Both
	// degrade gracefully, so the service can run without it.
	var claimStore ports.DeliveryClaimStore
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		claimStore = redisStorage.NewClaimStore(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: delivery claiming and rate limiting are off")
	}

	// Initialize repositories
	configRepo := pgStorage.NewWebhookConfigRepo(pool)
	deliveryRepo := pgStorage.NewWebhookDeliveryRepo(pool)
	adminRepo := pgStorage.NewAdminRepo(pool)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(adminRepo, hashSvc, tokenSvc)
	configSvc := service.NewWebhookConfigService(configRepo, deliveryRepo, encSvc, log)
	publisherSvc := service.NewPublisherService(configRepo, deliveryRepo, log)
	reportingSvc := service.NewReportingService(deliveryRepo)
	dispatchSvc := service.NewDispatchService(
		deliveryRepo,
		encSvc,
		sigSvc,
		claimStore,
		&http.Client{Timeout: cfg.Dispatch.HTTPTimeout},
		log,
		service.DispatchOptions{
			BatchSize: cfg.Dispatch.BatchSize,
			ClaimTTL:  cfg.Dispatch.ClaimTTL,
		},
	)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		ConfigSvc:      configSvc,
		ReportingSvc:   reportingSvc,
		DispatchSvc:    dispatchSvc,
		PublisherSvc:   publisherSvc,
		TokenSvc:       tokenSvc,
		TriggerToken:   cfg.Dispatch.TriggerToken,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// Optional built-in scheduler: drain one batch per interval.
	runCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	if cfg.Dispatch.Interval > 0 {
		go runDispatchLoop(runCtx, dispatchSvc, cfg.Dispatch.Interval, log)
	} else {
		log.Info().Msg("Dispatch interval is zero: cycles run only via POST /internal/dispatch")
	}

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runDispatchLoop runs one dispatch cycle per tick until ctx is cancelled.
// A cycle that fails (queue unreachable) is logged and retried next tick.
func runDispatchLoop(ctx context.Context, dispatchSvc ports.DispatchService, interval time.Duration, log zerolog.Logger) {
	log.Info().Dur("interval", interval).Msg("Dispatch loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Dispatch loop stopped")
			return
		case <-ticker.C:
			summary, err := dispatchSvc.RunCycle(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Dispatch cycle failed")
				continue
			}
			if summary.Total > 0 {
				log.Info().
					Int("processed", summary.Processed).
					Int("failed", summary.Failed).
					Int("total", summary.Total).
					Msg("Dispatch cycle complete")
			}
		}
	}
}
