package llm

import (
	"net/http"
	"time"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 1 * time.Second
	defaultRateLimit  = 20
	defaultRateBurst  = 5
)

// shared HTTP client for provider calls
// reuses connection pool and timeout configuration
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// configures Client
type Option func(*Client)

// sets the first retry delay; later retries double it
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// replaces the HTTP client, for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}
