package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/familytales/memorybook-api/api/health"
	"github.com/familytales/memorybook-api/api/threads"
	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/api/version"
	_ "github.com/familytales/memorybook-api/docs/swagger"
	"github.com/familytales/memorybook-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if deps == nil {
		return fmt.Errorf("dependencies are nil")
	}
	if deps.ThreadService == nil || deps.JobService == nil {
		return fmt.Errorf("thread and job services must be initialized before route registration")
	}

	// API v1 routes
	v1 := engine.Group("/api/v1")

	rps := cfg.RateLimiting.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimiting.Burst
	if burst <= 0 {
		burst = 20
	}

	threadGroup := v1.Group("/threads")
	if cfg.RateLimiting.Enabled {
		threadGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, burst))
	}
	threads.RegisterRoutes(threadGroup, deps)

	itemGroup := v1.Group("/items")
	if cfg.RateLimiting.Enabled {
		itemGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, burst))
	}
	threads.RegisterItemRoutes(itemGroup, deps)

	return nil
}
