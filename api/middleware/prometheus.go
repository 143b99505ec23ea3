package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	coachRequestOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_request_operations_total",
			Help: "Total number of coach request lifecycle operations",
		},
		[]string{"operation", "status", "service"},
	)

	coachRequestOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_request_operation_duration_seconds",
			Help:    "Duration of coach request lifecycle operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "service"},
	)

	coachRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_request_errors_total",
			Help: "Total number of coach request operation errors",
		},
		[]string{"operation", "error_type", "service"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
			serviceName,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			serviceName,
		).Observe(duration)
	}
}

func RecordRequestOperation(operation, status, serviceName string, duration time.Duration, err error) {
	coachRequestOpsTotal.WithLabelValues(operation, status, serviceName).Inc()
	coachRequestOpDuration.WithLabelValues(operation, serviceName).Observe(duration.Seconds())

	if err != nil {
		errorType := "unknown"
		if err.Error() != "" {
			errorType = err.Error()
		}
		coachRequestErrors.WithLabelValues(operation, errorType, serviceName).Inc()
	}
}
