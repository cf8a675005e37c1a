package ws

import (
	"net/http"
	"time"

	"inbox-service/internal/observability"
)

// ConnInfo identifies one websocket session for metrics and lifecycle events.
type ConnInfo struct {
	ConnID      string
	Kind        string
	ResourceID  int
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, kind string, resourceID, userID int, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      newConnID(),
		Kind:        kind,
		ResourceID:  resourceID,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(r),
		IP:          observability.IPFromRequest(r),
		RequestID:   observability.RequestIDFromRequest(r),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}
