package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"inbox-service/internal/middleware"
	"inbox-service/internal/services"
	"inbox-service/internal/telemetry"
)

// ConversationHandler manages the inbox and direct conversation endpoints.
type ConversationHandler struct {
	service *services.InboxService
	audit   *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(service *services.InboxService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{service: service, audit: audit}
}

// GetInbox returns one summary per peer, ordered for display.
func (h *ConversationHandler) GetInbox(c *gin.Context) {
	res, err := h.service.LoadInbox(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		WriteError(c, err, "failed to load inbox")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations":        res.Conversations,
		"rejected_message_ids": res.RejectedIDs,
	})
}

// GetMessages returns a page of the conversation grouped by day and marks
// the peer's unread messages read.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}
	limit, err := QueryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := QueryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	loc, err := QueryZone(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tz"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	conv, peer, err := h.service.LoadConversation(c.Request.Context(), userID, peerID, limit, offset, loc)
	if err != nil {
		WriteError(c, err, "failed to load messages")
		return
	}

	readIDs, err := h.service.FlushReads(c.Request.Context(), userID, conv)
	if err != nil {
		WriteError(c, err, "failed to mark messages read")
		return
	}

	limit, offset = h.service.ClampPage(limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"peer":             peer,
		"days":             conv.Timeline(),
		"read_message_ids": readIDs,
		"limit":            limit,
		"offset":           offset,
	})
}

// PostMessage sends a message to the peer.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, telemetry.AuditEntry{Level: "ERROR", Action: "message.send", Text: "invalid request payload", PeerID: peerID})
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), c.GetInt(middleware.UserIDKey), peerID, req.Content)
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditEntry{Level: "ERROR", Action: "message.send", Text: "message send failed", PeerID: peerID})
		WriteError(c, err, "failed to store message")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditEntry{Level: "INFO", Action: "message.send", Text: "Message sent", PeerID: peerID})
	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks every unread message from the peer read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	peerID, ok := parsePeerID(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkConversationRead(c.Request.Context(), c.GetInt(middleware.UserIDKey), peerID)
	if err != nil {
		WriteError(c, err, "failed to mark messages read")
		return
	}
	emitAudit(c, h.audit, telemetry.AuditEntry{Level: "INFO", Action: "conversation.read", Text: "Conversation marked read", PeerID: peerID})
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func parsePeerID(c *gin.Context) (int, bool) {
	peerID, err := strconv.Atoi(c.Param("peer_id"))
	if err != nil || peerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return 0, false
	}
	return peerID, true
}

// QueryInt reads an optional integer query parameter; absent means 0.
func QueryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// QueryZone reads an optional IANA zone from ?tz=. A nil location means
// the service default.
func QueryZone(c *gin.Context) (*time.Location, error) {
	name := c.Query("tz")
	if name == "" {
		return nil, nil
	}
	return time.LoadLocation(name)
}
