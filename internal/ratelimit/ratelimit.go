// Package ratelimit throttles HTTP clients per IP address.
package ratelimit

import (
	"fmt"

	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/logger"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type Limiter struct {
	config     Config
	middleware gin.HandlerFunc
}

// builds a limiter; counters are shared through Redis when client is non-nil and kept in process otherwise
func New(cfg Config, client goredis.UniversalClient) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", cfg.Rate, err)
	}

	var store limiter.Store

	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   cfg.Prefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          cfg.Prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	instance := limiter.New(store, rate)

	return &Limiter{
		config: cfg,
		middleware: mgin.NewMiddleware(instance,
			mgin.WithLimitReachedHandler(handleRateLimited),
			mgin.WithErrorHandler(handleStoreError),
		),
	}, nil
}

// returns a Gin middleware enforcing the limit outside exempt paths
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.config.IsExemptPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		l.middleware(c)
	}
}

func handleRateLimited(c *gin.Context) {
	logger.FromContext(c.Request.Context()).Warn("rate limit exceeded", "ip", c.ClientIP())

	c.Header("Retry-After", "60")
	errors.TooManyRequests(c, "too many requests, please slow down")
	c.Abort()
}

// a broken store must not take the API down
func handleStoreError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("rate limit store failed", "error", err)

	if c.Writer.Written() {
		return
	}

	c.Next()
}
