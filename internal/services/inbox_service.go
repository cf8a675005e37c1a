package services

import (
	"context"
	"log"
	"strings"
	"time"

	"inbox-service/internal/inbox"
	"inbox-service/internal/models"
	"inbox-service/internal/observability"
	"inbox-service/internal/rabbitmq"
	"inbox-service/internal/repositories"
)

const maxPageLimit = 100

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Broadcaster pushes a stored message to live subscribers.
type Broadcaster interface {
	Publish(msg models.Message)
}

// InboxResult is a computed inbox plus the records dropped as malformed.
type InboxResult struct {
	Conversations []models.ConversationSummary
	RejectedIDs   []int
}

// MessagesReadEvent is published after a mark-as-read transition.
type MessagesReadEvent struct {
	ReaderID   int       `json:"reader_id"`
	SenderID   int       `json:"sender_id"`
	MessageIDs []int     `json:"message_ids"`
	Updated    int64     `json:"updated"`
	ReadAt     time.Time `json:"read_at"`
}

// InboxService coordinates repositories, the pure inbox derivations and
// realtime fan-out.
type InboxService struct {
	users     repositories.UserRepository
	messages  repositories.MessageRepository
	hub       Broadcaster
	events    EventPublisher
	loc       *time.Location
	pageLimit int
}

// NewInboxService builds an InboxService. loc is the day-bucketing zone.
func NewInboxService(users repositories.UserRepository, messages repositories.MessageRepository, hub Broadcaster, events EventPublisher, loc *time.Location, pageLimit int) *InboxService {
	if loc == nil {
		loc = time.UTC
	}
	if pageLimit <= 0 {
		pageLimit = 20
	}
	return &InboxService{
		users:     users,
		messages:  messages,
		hub:       hub,
		events:    events,
		loc:       loc,
		pageLimit: pageLimit,
	}
}

// Location returns the default day-bucketing zone.
func (s *InboxService) Location() *time.Location { return s.loc }

// ListPeers returns every user the current user can talk to.
func (s *InboxService) ListPeers(ctx context.Context, userID int) ([]models.User, error) {
	return s.users.ListOtherUsers(ctx, userID)
}

// GetUser returns a single profile.
func (s *InboxService) GetUser(ctx context.Context, userID int) (models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// UpdateProfile applies a profile editor update.
func (s *InboxService) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return models.User{}, err
	}
	s.publish(ctx, rabbitmq.RoutingProfileUpdated, user)
	return user, nil
}

// LoadInbox fetches peers and messages and derives the inbox. Malformed
// messages are dropped and reported in RejectedIDs.
func (s *InboxService) LoadInbox(ctx context.Context, userID int) (InboxResult, error) {
	peers, err := s.users.ListOtherUsers(ctx, userID)
	if err != nil {
		return InboxResult{}, err
	}
	msgs, err := s.messages.ListMessagesForUser(ctx, userID)
	if err != nil {
		return InboxResult{}, err
	}

	valid, verr := inbox.SplitValid(userID, msgs)
	var rejected []int
	if verr != nil {
		rejected = verr.MessageIDs
		observability.AddRejectedMessages("inbox", len(rejected))
		log.Printf("inbox dropped malformed messages user_id=%d ids=%v", userID, rejected)
	}

	summaries, err := inbox.BuildConversationIndex(userID, peers, valid)
	if err != nil {
		return InboxResult{}, err
	}
	return InboxResult{Conversations: summaries, RejectedIDs: rejected}, nil
}

// ClampPage normalizes client supplied paging.
func (s *InboxService) ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.pageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// LoadConversation fetches one page of the conversation with peerID into a
// new loaded Conversation.
func (s *InboxService) LoadConversation(ctx context.Context, userID, peerID, limit, offset int, loc *time.Location) (*inbox.Conversation, models.User, error) {
	if userID == peerID {
		return nil, models.User{}, &inbox.ValidationError{Reason: "cannot open a conversation with yourself"}
	}
	peer, err := s.users.GetUser(ctx, peerID)
	if err != nil {
		return nil, models.User{}, err
	}

	limit, offset = s.ClampPage(limit, offset)
	msgs, err := s.messages.ListMessages(ctx, userID, peerID, limit, offset)
	if err != nil {
		return nil, models.User{}, err
	}

	if loc == nil {
		loc = s.loc
	}
	conv := inbox.NewConversation(userID, peerID, loc)
	if err := conv.Load(msgs); err != nil {
		observability.AddRejectedMessages("timeline", len(msgs))
		return nil, models.User{}, err
	}
	return conv, peer, nil
}

// FlushReads marks read whatever the loaded conversation says qualifies.
// Nothing is sent when there is nothing to mark. The conversation only
// records the reads after the backend accepted them, so a failed flush is
// retried by the next call.
func (s *InboxService) FlushReads(ctx context.Context, userID int, conv *inbox.Conversation) ([]int, error) {
	ids := conv.PendingReads()
	if len(ids) == 0 {
		return nil, nil
	}
	updated, err := s.messages.MarkRead(ctx, conv.PeerID(), userID)
	if err != nil {
		return nil, err
	}
	conv.ConfirmReads(ids)
	observability.AddMarkedRead(updated)
	s.publish(ctx, rabbitmq.RoutingMessagesRead, MessagesReadEvent{
		ReaderID:   userID,
		SenderID:   conv.PeerID(),
		MessageIDs: ids,
		Updated:    updated,
		ReadAt:     time.Now().UTC(),
	})
	return ids, nil
}

// MarkConversationRead marks every unread message from peerID read without
// loading the conversation first.
func (s *InboxService) MarkConversationRead(ctx context.Context, userID, peerID int) (int64, error) {
	if userID == peerID {
		return 0, &inbox.ValidationError{Reason: "cannot read a conversation with yourself"}
	}
	updated, err := s.messages.MarkRead(ctx, peerID, userID)
	if err != nil {
		return 0, err
	}
	observability.AddMarkedRead(updated)
	if updated > 0 {
		s.publish(ctx, rabbitmq.RoutingMessagesRead, MessagesReadEvent{
			ReaderID: userID,
			SenderID: peerID,
			Updated:  updated,
			ReadAt:   time.Now().UTC(),
		})
	}
	return updated, nil
}

// SendMessage validates, stores and fans out a new message.
func (s *InboxService) SendMessage(ctx context.Context, senderID, receiverID int, content string) (models.Message, error) {
	if err := inbox.ValidateOutgoing(senderID, receiverID, content); err != nil {
		return models.Message{}, err
	}
	if _, err := s.users.GetUser(ctx, receiverID); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, senderID, receiverID, strings.TrimSpace(content))
	if err != nil {
		return models.Message{}, err
	}

	if s.hub != nil {
		s.hub.Publish(msg)
	}
	s.publish(ctx, rabbitmq.RoutingMessageCreated, msg)
	return msg, nil
}

func (s *InboxService) publish(ctx context.Context, routingKey string, event any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, event, nil); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("event publish failed routing_key=%s: %v", routingKey, err)
	}
}
