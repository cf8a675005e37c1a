package models

import "time"

// Message represents a direct message between two users.
type Message struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	ReceiverID int       `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PeerOf returns the participant that is not userID.
func (m Message) PeerOf(userID int) int {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID int) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// ConversationEvent is pushed over websocket connections.
type ConversationEvent struct {
	Type     string      `json:"type"`
	Message  *Message    `json:"message,omitempty"`
	Timeline []DayBucket `json:"timeline,omitempty"`
	ReadIDs  []int       `json:"read_ids,omitempty"`
}

// InboxEvent carries a freshly computed inbox.
type InboxEvent struct {
	Type          string                `json:"type"`
	Conversations []ConversationSummary `json:"conversations"`
	RejectedIDs   []int                 `json:"rejected_message_ids,omitempty"`
}
