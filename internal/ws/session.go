package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"inbox-service/internal/middleware"
	"inbox-service/internal/observability"
	"inbox-service/internal/realtime"
	"inbox-service/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = int64(4 << 10)
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the live inbox and live conversation websockets.
type Handler struct {
	hub       *Hub
	realtime  *realtime.Hub
	service   *services.InboxService
	validator *middleware.TokenValidator
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, rt *realtime.Hub, service *services.InboxService, validator *middleware.TokenValidator) *Handler {
	return &Handler{hub: hub, realtime: rt, service: service, validator: validator}
}

// session is one upgraded connection. Only the goroutine running the
// session loop writes data frames.
type session struct {
	hub    *Hub
	conn   *websocket.Conn
	info   ConnInfo
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	reason string
}

// open upgrades the request and registers the session. ctx carries the
// handshake span; the session context outlives the request.
func (h *Handler) open(ctx context.Context, c *gin.Context, kind string, resourceID, userID int, traceID string) (*session, error) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, err
	}

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		hub:    h.hub,
		conn:   conn,
		info:   newConnInfo(c.Request, kind, resourceID, userID, traceID),
		ctx:    sessCtx,
		cancel: cancel,
	}
	h.hub.Add(conn, s.info)
	observability.IncWSActive(kind)
	publishLifecycle(s.ctx, s.info, "ws_connect", "")
	return s, nil
}

// readLoop drains client frames so control frames are processed, and
// cancels the session on the first read error.
func (s *session) readLoop() {
	defer s.cancel()

	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.setReason(err.Error())
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(s.ctx, s.info, "ws_error", err.Error())
			}
			return
		}
	}
}

func (s *session) writeJSON(payload any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(payload); err != nil {
		log.Printf("websocket write error conn_id=%s: %v", s.info.ConnID, err)
		s.setReason(err.Error())
		publishLifecycle(s.ctx, s.info, "ws_error", err.Error())
		return err
	}
	return nil
}

func (s *session) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *session) setReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		s.reason = reason
	}
}

// close unregisters the session and reports how long it lasted.
func (s *session) close() {
	s.cancel()
	s.hub.Remove(s.conn)
	observability.DecWSActive(s.info.Kind)

	s.mu.Lock()
	reason := s.reason
	s.mu.Unlock()
	publishLifecycle(context.WithoutCancel(s.ctx), s.info, "ws_disconnect", reason)
	_ = s.conn.Close()
}
