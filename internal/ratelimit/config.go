package ratelimit

import "strings"

// holds HTTP rate limit configuration
type Config struct {
	// limiter formatted rate, e.g. "60-M" for 60 requests per minute
	Rate string

	// key prefix when counters live in Redis
	Prefix string

	// paths that bypass the limiter (health checks, etc.)
	ExemptPaths []string
}

// returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Rate:   "60-M",
		Prefix: "luchgpt:ratelimit",
		ExemptPaths: []string{
			"/health",
			"/metrics",
			"/api/v1/ping",
		},
	}
}

// checks if a path bypasses the limiter
func (c Config) IsExemptPath(path string) bool {
	for _, ep := range c.ExemptPaths {
		if path == ep || strings.HasPrefix(path, ep+"/") {
			return true
		}
	}

	return false
}
