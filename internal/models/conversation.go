package models

import "time"

// LastMessage is the inbox preview of a conversation's latest message.
type LastMessage struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	SentByMe  bool      `json:"sent_by_me"`
	Label     string    `json:"label"`
}

// ConversationSummary is the derived inbox row for one peer.
type ConversationSummary struct {
	Peer        User         `json:"peer"`
	LastMessage *LastMessage `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
}

// DayBucket groups a conversation's messages sharing a calendar date.
type DayBucket struct {
	Day      string    `json:"day"`
	Messages []Message `json:"messages"`
}
