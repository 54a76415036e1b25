package middleware

import (
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts, latency, and in-flight gauge. Paths are
// labelled by route template, not raw URL, to keep cardinality bounded.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		collector.InFlightGauge.Inc()
		defer collector.InFlightGauge.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		collector.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
