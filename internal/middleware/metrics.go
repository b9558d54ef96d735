package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/metrics"
)

// Metrics records request counts and latencies by matched route.
// Unmatched paths are reported under a single route label.
func Metrics(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reg.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
