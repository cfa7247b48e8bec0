package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vimoda/web3-oauth-api/pkg/metrics"
)

// MetricsMiddleware creates a middleware that tracks request metrics
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		collector.RecordRequest()

		c.Next()

		success := c.Writer.Status() < 400
		collector.RecordRequestComplete(time.Since(startTime), success)
	}
}
