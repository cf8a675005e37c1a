package ws

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inbox-service/internal/middleware"
	"inbox-service/internal/observability"
)

const (
	kindInbox        = "inbox"
	kindConversation = "conversation"
)

var errMissingToken = errors.New("missing token")

func newConnID() string {
	return uuid.NewString()
}

func wsRoutingKey(kind string) string {
	if kind == kindConversation {
		return "ws_events.conversations"
	}
	return "ws_events.inbox"
}

// publishLifecycle records a connect, disconnect or error event.
func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(info.Kind, event)
	_ = observability.PublishEvent(ctx, wsRoutingKey(info.Kind),
		observability.WSEvent(info.Kind, info.ResourceID, event, info.ConnID, info.ConnectedAt, reason, info.UserID, info.DeviceID, info.IP),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}

// authenticate accepts a bearer header or, for browsers that cannot set
// headers on a websocket handshake, a token query parameter.
func authenticate(c *gin.Context, validator *middleware.TokenValidator) (int, error) {
	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		return 0, errMissingToken
	}
	return validator.ValidateToken(token)
}
