package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/metrics"
)

// MetricsMiddleware counts requests and observes their latency by route
// template, so dataset ids do not become label values.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.Requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
