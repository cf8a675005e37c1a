package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inbox-service/internal/middleware"
	"inbox-service/internal/models"
	"inbox-service/internal/services"
	"inbox-service/internal/telemetry"
)

// UserHandler serves peer listing and the profile editor.
type UserHandler struct {
	service *services.InboxService
	audit   *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(service *services.InboxService, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{service: service, audit: audit}
}

// ListUsers returns every other user.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListPeers(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		WriteError(c, err, "failed to load users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser returns one profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), c.GetInt(middleware.UserIDKey), req)
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditEntry{Level: "ERROR", Action: "profile.update", Text: "profile update failed"})
		WriteError(c, err, "could not update profile")
		return
	}
	emitAudit(c, h.audit, telemetry.AuditEntry{Level: "INFO", Action: "profile.update", Text: "Profile updated"})
	c.JSON(http.StatusOK, user)
}
