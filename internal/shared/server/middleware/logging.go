package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		// Handlers annotate the context with the manuscript and audit
		// they touched so one log line tells the whole story.
		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            c.Writer.Status(),
			"status_transition": contextString(c, "statusTransition"),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"manuscript_id":     contextString(c, "manuscriptId"),
			"audit_id":          contextString(c, "auditId"),
			"is_guest":          IsGuestFromContext(c),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
