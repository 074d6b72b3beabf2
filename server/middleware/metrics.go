package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/observability"
)

// RequestMetrics records request count, latency and in-flight requests.
// Server errors are also counted by status code.
func RequestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m.RecordRequestStart(ctx)
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.RecordRequestEnd(ctx, c.Request.Method, route, status, time.Since(start))
		if status >= 500 {
			m.RecordError(ctx, strconv.Itoa(status), "http")
		}
	}
}
