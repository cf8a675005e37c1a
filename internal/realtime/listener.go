package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"inbox-service/internal/db"
	"inbox-service/internal/models"
	"inbox-service/internal/observability"
)

const pingInterval = 90 * time.Second

// Listener forwards rows announced on the message insert channel to a Hub.
type Listener struct {
	dsn string
	hub *Hub
}

// NewListener constructs a Listener for the given database.
func NewListener(dsn string, hub *Hub) *Listener {
	return &Listener{dsn: dsn, hub: hub}
}

// Run listens until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("realtime listener event=%d error: %v", ev, err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(db.MessageInsertChannel); err != nil {
		return fmt.Errorf("listen %s: %w", db.MessageInsertChannel, err)
	}
	log.Printf("realtime listening channel=%s", db.MessageInsertChannel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.dispatch(n)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				log.Printf("realtime ping failed: %v", err)
			}
		}
	}
}

// dispatch publishes one notification. A nil notification means the
// connection was re-established and inserts in the gap were not seen, so
// every subscriber is released to reload.
func (l *Listener) dispatch(n *pq.Notification) {
	if n == nil {
		released := l.hub.ReleaseAll()
		log.Printf("realtime listener reconnected, released %d subscriptions", released)
		observability.IncRealtimeDelivery("reconnect")
		return
	}
	msg, err := decodeNotification(n.Extra)
	if err != nil {
		log.Printf("realtime decode failed: %v", err)
		observability.IncRealtimeDelivery("decode_error")
		return
	}
	l.hub.Publish(msg)
}

func decodeNotification(payload string) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return models.Message{}, err
	}
	if msg.ID == 0 {
		return models.Message{}, fmt.Errorf("notification without message id")
	}
	return msg, nil
}
