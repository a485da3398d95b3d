package middleware

import (
	"time"

	"zonewatch/internal/logger"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one structured entry per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		requestID := c.GetString(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}

		entry := log.WithFields(logger.Fields{
			"request_id":    requestID,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"query":         c.Request.URL.RawQuery,
			"status":        status,
			"latency_ms":    time.Since(start).Milliseconds(),
			"ip":            c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
			"response_size": c.Writer.Size(),
		})

		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}
	}
}
