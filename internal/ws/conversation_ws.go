package ws

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inbox-service/internal/handlers"
	"inbox-service/internal/inbox"
	"inbox-service/internal/models"
	"inbox-service/internal/observability"
	"inbox-service/internal/realtime"
)

type conversationParams struct {
	peerID int
	limit  int
	offset int
	loc    *time.Location
}

// Conversation streams one two-party conversation. The initial timeline is
// sent once loaded; every new message is merged, marked read when it
// qualifies, and pushed with the regrouped timeline.
func (h *Handler) Conversation(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("peer_id"))
	if err != nil || peerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}
	limit, err := handlers.QueryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := handlers.QueryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	loc, err := handlers.QueryZone(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tz"})
		return
	}
	params := conversationParams{peerID: peerID, limit: limit, offset: offset, loc: loc}

	ctx, span := otel.Tracer("inbox-service/ws").Start(c.Request.Context(), "ws.handshake.conversation", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := authenticate(c, h.validator)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	sub := h.realtime.Subscribe(userID)
	conv, _, err := h.service.LoadConversation(ctx, userID, peerID, params.limit, params.offset, params.loc)
	if err != nil {
		sub.Unsubscribe()
		handlers.WriteError(c, err, "failed to load conversation")
		return
	}

	s, err := h.open(ctx, c, kindConversation, peerID, userID, span.SpanContext().TraceID().String())
	if err != nil {
		sub.Unsubscribe()
		return
	}

	go h.runConversation(s, sub, conv, params)
}

func (h *Handler) runConversation(s *session, sub *realtime.Subscription, conv *inbox.Conversation, params conversationParams) {
	defer s.close()
	defer func() { sub.Unsubscribe() }()
	go s.readLoop()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := h.pushTimeline(s, conv); err != nil {
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sub.Done():
			log.Printf("conversation subscription dropped conn_id=%s, resyncing", s.info.ConnID)
			sub = h.realtime.Subscribe(s.info.UserID)
			fresh, err := h.reload(s.ctx, s.info.UserID, params)
			if err != nil {
				s.setReason(err.Error())
				return
			}
			conv = fresh
			if err := h.pushTimeline(s, conv); err != nil {
				return
			}
		case m := <-sub.Messages():
			added, err := conv.Merge(m)
			if err != nil {
				observability.AddRejectedMessages("timeline", 1)
				log.Printf("conversation rejected delivery message_id=%d: %v", m.ID, err)
				continue
			}
			if !added {
				continue
			}
			readIDs := h.flush(s, conv)
			observability.ObserveRecompute(kindConversation, "applied")
			event := models.ConversationEvent{Type: "message", Message: &m, Timeline: conv.Timeline(), ReadIDs: readIDs}
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

func (h *Handler) reload(ctx context.Context, userID int, params conversationParams) (*inbox.Conversation, error) {
	conv, _, err := h.service.LoadConversation(ctx, userID, params.peerID, params.limit, params.offset, params.loc)
	return conv, err
}

func (h *Handler) pushTimeline(s *session, conv *inbox.Conversation) error {
	readIDs := h.flush(s, conv)
	return s.writeJSON(models.ConversationEvent{Type: "timeline", Timeline: conv.Timeline(), ReadIDs: readIDs})
}

// flush marks pending reads. A failure is logged and the session carries
// on; the reads stay pending and the next delivery retries them.
func (h *Handler) flush(s *session, conv *inbox.Conversation) []int {
	ids, err := h.service.FlushReads(s.ctx, s.info.UserID, conv)
	if err != nil {
		log.Printf("mark read failed user_id=%d peer_id=%d: %v", s.info.UserID, conv.PeerID(), err)
		return nil
	}
	return ids
}
