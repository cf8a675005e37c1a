package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-service/internal/telemetry"
)

// SessionCounter reports open websocket sessions by kind.
type SessionCounter interface {
	Count(kind string) int
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, sessions SessionCounter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(c, emitter, telemetry.AuditEntry{Level: "INFO", Action: "debug.audit", Text: "audit test"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/sessions", func(c *gin.Context) {
		if sessions == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session registry not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"inbox":        sessions.Count("inbox"),
			"conversation": sessions.Count("conversation"),
			"total":        sessions.Count(""),
		})
	})
}
