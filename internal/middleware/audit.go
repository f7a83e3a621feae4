package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/pkg/middleware/requestid"
)

type auditRecorder interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Audit records one audit log entry after a successful request. Requests
// answered with a 4xx or 5xx status are not recorded. A failed write is
// logged and never changes the response.
func Audit(recorder auditRecorder, logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:      action,
			ClassroomID: optional(c.Param("id")),
			StudentID:   optional(c.Param("studentId")),
			Status:      status,
			RequestID:   optional(requestid.Value(c)),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
			CreatedAt:   start,
		}
		if claims, ok := Claims(c); ok {
			entry.ActorID = optional(claims.UserID)
			entry.ActorRole = optional(string(claims.Role))
		}
		details, _ := json.Marshal(map[string]interface{}{
			"route":   c.FullPath(),
			"method":  c.Request.Method,
			"latency": time.Since(start).Milliseconds(),
		})
		entry.Details = string(details)

		if err := recorder.Create(c.Request.Context(), entry); err != nil {
			logger.Warn("audit log write failed",
				zap.String("action", action),
				zap.String("request_id", requestid.Value(c)),
				zap.Error(err),
			)
		}
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
