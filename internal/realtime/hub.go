package realtime

import (
	"log"
	"sync"

	"inbox-service/internal/models"
	"inbox-service/internal/observability"
)

const defaultQueueSize = 64

// Hub fans newly created messages out to per-user subscriptions.
type Hub struct {
	subs      map[int]map[*Subscription]struct{}
	queueSize int
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[int]map[*Subscription]struct{}),
		queueSize: defaultQueueSize,
	}
}

// Subscription receives messages involving one user. Deliveries are
// at-least-once; consumers dedupe by message id.
type Subscription struct {
	hub    *Hub
	userID int
	queue  chan models.Message
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers a subscription for messages sent or received by userID.
func (h *Hub) Subscribe(userID int) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		queue:  make(chan models.Message, h.queueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[userID]; !ok {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	observability.IncRealtimeSubscriptions()
	return sub
}

// SubscribeFunc invokes fn sequentially for every delivery until the
// subscription is released.
func (h *Hub) SubscribeFunc(userID int, fn func(models.Message)) *Subscription {
	sub := h.Subscribe(userID)
	go func() {
		for {
			select {
			case msg := <-sub.queue:
				fn(msg)
			case <-sub.done:
				return
			}
		}
	}()
	return sub
}

// Messages is the subscription's delivery queue.
func (s *Subscription) Messages() <-chan models.Message { return s.queue }

// Done is closed once the subscription is released, either by the owner or
// because the consumer fell behind.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Unsubscribe releases the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.userID]; ok {
		if _, exists := subs[sub]; exists {
			delete(subs, sub)
			observability.DecRealtimeSubscriptions()
		}
		if len(subs) == 0 {
			delete(h.subs, sub.userID)
		}
	}
}

// Publish delivers msg to the sender's and the receiver's subscriptions.
// A subscription whose queue is full is released so its owner resyncs.
func (h *Hub) Publish(msg models.Message) {
	for _, sub := range h.subscribers(msg.SenderID, msg.ReceiverID) {
		select {
		case <-sub.done:
		case sub.queue <- msg:
			observability.IncRealtimeDelivery("delivered")
		default:
			log.Printf("realtime queue full user_id=%d message_id=%d, releasing subscription", sub.userID, msg.ID)
			observability.IncRealtimeDelivery("overflow")
			sub.Unsubscribe()
		}
	}
}

// ReleaseAll releases every live subscription so each owner resyncs. It is
// used when deliveries may have been lost, e.g. after a listener reconnect.
func (h *Hub) ReleaseAll() int {
	h.mu.RLock()
	var all []*Subscription
	for _, subs := range h.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
	return len(all)
}

func (h *Hub) subscribers(userIDs ...int) []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Subscription
	seen := map[int]struct{}{}
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		for sub := range h.subs[id] {
			out = append(out, sub)
		}
	}
	return out
}
