package main

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/luchgpt/server/internal/app"
	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/internal/mailer"
	"codeberg.org/luchgpt/server/internal/ratelimit"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// how often expired confirmation codes are purged
const cleanupCheckInterval = 10 * time.Minute

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.Rate = cfg.RateLimit

	// a nil interface keeps the limiter in memory when Redis is not configured
	var redisClient goredis.UniversalClient
	if a.Redis != nil {
		redisClient = a.Redis
	}

	limiter, err := ratelimit.New(limiterConfig, redisClient)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	logger.Info("rate limiting initialized", "rate", limiterConfig.Rate, "shared", redisClient != nil)

	server := &Server{
		app:            a,
		mailer:         mailer.New(cfg.SMTP),
		limiter:        limiter,
		cleanupService: confirmations.NewCleanupService(a.Confirmations, cleanupCheckInterval),
		router:         gin.New(),
	}

	RegisterRoutes(server.router, server)

	return server, nil
}
