package handler

import (
	"thirdplace-webhooks/internal/adapter/http/middleware"
	redisStore "thirdplace-webhooks/internal/adapter/storage/redis"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	ConfigSvc      ports.WebhookConfigService
	ReportingSvc   ports.ReportingService
	DispatchSvc    ports.DispatchService
	PublisherSvc   ports.PublisherService
	TokenSvc       ports.TokenService
	TriggerToken   string                     // shared secret for /internal routes
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus scrape endpoint
	metrics.RegisterDefault()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Internal routes (trigger token) ---
	dispatchHandler := NewDispatchHandler(deps.DispatchSvc, deps.PublisherSvc)
	triggerAuth := middleware.TriggerAuth(deps.TriggerToken, deps.Logger)
	internal := r.Group("/internal", triggerAuth)
	{
		internal.POST("/dispatch", rl("dispatch"), dispatchHandler.RunCycle)
		internal.POST("/events", rl("events"), dispatchHandler.PublishEvent)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes (admin API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	configHandler := NewWebhookConfigHandler(deps.ConfigSvc)
	deliveryHandler := NewDeliveryHandler(deps.ReportingSvc)

	webhooks := v1.Group("/webhooks", jwtAuth)
	{
		webhooks.POST("", rl("admin"), configHandler.Create)
		webhooks.GET("", rl("admin"), configHandler.List)
		webhooks.GET("/:id", rl("admin"), configHandler.Get)
		webhooks.PUT("/:id", rl("admin"), configHandler.Update)
		webhooks.DELETE("/:id", rl("admin"), configHandler.Delete)
		webhooks.POST("/:id/test", rl("admin"), configHandler.SendTest)
	}

	deliveries := v1.Group("/deliveries", jwtAuth)
	{
		deliveries.GET("", rl("admin"), deliveryHandler.List)
		deliveries.GET("/stats", rl("admin"), deliveryHandler.GetStats)
	}

	return r
}
