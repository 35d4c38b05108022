package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaimgo/marketing-api/pkg/metrics"
)

// MetricsMiddleware records per-request counters and latency, labeled
// by route template rather than raw path to keep cardinality bounded.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
