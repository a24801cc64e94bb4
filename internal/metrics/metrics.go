package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// outcome label values
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
)

var (
	QuotaDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luchgpt_quota_decisions_total",
			Help: "Quota checks by tier, model and outcome",
		},
		[]string{"tier", "model", "outcome"},
	)

	GuestRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luchgpt_guest_requests_total",
			Help: "Guest AI requests by outcome",
		},
		[]string{"outcome"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luchgpt_ai_requests_total",
			Help: "Calls to the AI provider by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luchgpt_ai_request_duration_seconds",
			Help:    "Latency of calls to the AI provider",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	ChatsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luchgpt_chats_created_total",
			Help: "Chats created by tier",
		},
		[]string{"tier"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luchgpt_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luchgpt_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ChatsForceClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luchgpt_chats_force_closed_total",
			Help: "Chats closed because they reached the message cap",
		},
	)
)

// serves the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// label for requests that matched no route, keeping cardinality bounded
const unmatchedRoute = "unmatched"

// records count and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		method := c.Request.Method

		HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
