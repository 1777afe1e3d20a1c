package middleware

import (
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDKey    = string(domain.KeyRequestID)
	RequestIDHeader = "X-Request-ID"
)

// RequestID reuses an incoming X-Request-ID or generates one, and makes it
// available to handlers, the response envelope and the audit trail.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(audit.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(RequestIDKey),
		}
		switch {
		case status >= 500:
			logger.Log.Error("request", attrs...)
		case status >= 400:
			logger.Log.Warn("request", attrs...)
		default:
			logger.Log.Info("request", attrs...)
		}
	}
}
