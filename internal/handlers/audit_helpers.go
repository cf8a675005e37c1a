package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inbox-service/internal/middleware"
	"inbox-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

// RequestIDMiddleware assigns every request an id, honouring X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestIDFromContext(c)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int {
	if userID := c.GetInt(middleware.UserIDKey); userID != 0 {
		return &userID
	}
	return nil
}

// emitAudit stamps entry with the request and caller ids and publishes it.
func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, entry telemetry.AuditEntry) {
	entry.RequestID = requestIDFromContext(c)
	entry.UserID = userIDFromContext(c)
	audit.Emit(c.Request.Context(), entry)
}
