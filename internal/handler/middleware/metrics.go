package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"eventory/api/internal/metrics"
)

// Metrics records latency and status per matched route template, so path ids
// do not explode label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
