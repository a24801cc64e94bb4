package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, rate string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := DefaultConfig()
	cfg.Rate = rate

	limiter, err := New(cfg, nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/chats", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}

func hit(router *gin.Engine, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.9:1234"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w.Code
}

func TestLimiterBlocksAfterRate(t *testing.T) {
	router := newRouter(t, "2-M")

	assert.Equal(t, http.StatusOK, hit(router, "/api/v1/chats"))
	assert.Equal(t, http.StatusOK, hit(router, "/api/v1/chats"))
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "/api/v1/chats"))
}

func TestLimiterSkipsExemptPaths(t *testing.T) {
	router := newRouter(t, "1-M")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "/health"))
	}
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New(Config{Rate: "lots"}, nil)
	assert.Error(t, err)
}

func TestIsExemptPath(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsExemptPath("/health"))
	assert.True(t, cfg.IsExemptPath("/metrics/extra"))
	assert.False(t, cfg.IsExemptPath("/healthy"))
}
