package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inbox-service/internal/inbox"
	"inbox-service/internal/models"
	"inbox-service/internal/observability"
	"inbox-service/internal/realtime"
	"inbox-service/internal/services"
)

type inboxResult struct {
	seq uint64
	res services.InboxResult
	err error
}

// Inbox streams the current user's inbox, recomputed after every insert
// that involves them.
func (h *Handler) Inbox(c *gin.Context) {
	ctx, span := otel.Tracer("inbox-service/ws").Start(c.Request.Context(), "ws.handshake.inbox", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := authenticate(c, h.validator)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	// subscribe before the first fetch so no insert falls between the two
	sub := h.realtime.Subscribe(userID)
	s, err := h.open(ctx, c, kindInbox, userID, userID, span.SpanContext().TraceID().String())
	if err != nil {
		sub.Unsubscribe()
		return
	}

	go h.runInbox(s, sub)
}

func (h *Handler) runInbox(s *session, sub *realtime.Subscription) {
	defer s.close()
	defer func() { sub.Unsubscribe() }()
	go s.readLoop()

	var (
		view    inbox.View[services.InboxResult]
		seq     uint64
		results = make(chan inboxResult)
		ticker  = time.NewTicker(pingPeriod)
	)
	defer ticker.Stop()

	refresh := func() {
		seq++
		tag := seq
		go func() {
			res, err := h.service.LoadInbox(s.ctx, s.info.UserID)
			select {
			case results <- inboxResult{seq: tag, res: res, err: err}:
			case <-s.ctx.Done():
			}
		}()
	}
	refresh()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sub.Done():
			log.Printf("inbox subscription dropped conn_id=%s, resyncing", s.info.ConnID)
			sub = h.realtime.Subscribe(s.info.UserID)
			refresh()
		case <-sub.Messages():
			refresh()
		case r := <-results:
			if r.err != nil {
				observability.ObserveRecompute(kindInbox, "error")
				log.Printf("inbox refresh failed user_id=%d: %v", s.info.UserID, r.err)
				continue
			}
			if !view.Publish(r.seq, r.res) {
				observability.ObserveRecompute(kindInbox, "stale")
				continue
			}
			observability.ObserveRecompute(kindInbox, "applied")
			event := models.InboxEvent{Type: "inbox", Conversations: r.res.Conversations, RejectedIDs: r.res.RejectedIDs}
			if err := s.writeJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.ping(); err != nil {
				s.setReason(err.Error())
				return
			}
		}
	}
}
