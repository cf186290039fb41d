package middleware

import (
	"strconv"
	"time"

	"cinema-booking/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency per route template,
// so path parameters do not explode label cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
