package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks the open websocket sessions so they can be counted and closed
// on shutdown. Message fan-out happens in realtime.Hub.
type Hub struct {
	conns map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]ConnInfo)}
}

// Add registers a websocket connection.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = info
}

// Remove unregisters conn and returns what was known about it.
func (h *Hub) Remove(conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
	}
	return info, ok
}

// Count returns the number of open sessions of kind, or of all kinds when
// kind is empty.
func (h *Hub) Count(kind string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "" {
		return len(h.conns)
	}
	n := 0
	for _, info := range h.conns {
		if info.Kind == kind {
			n++
		}
	}
	return n
}

// CloseAll sends a going-away close frame to every session. Each session
// then observes the read error and cleans up after itself.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	deadline := time.Now().Add(writeWait)
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
	}
}
