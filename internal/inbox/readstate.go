package inbox

import (
	"strings"

	"inbox-service/internal/models"
)

// Qualifies reports whether m flips to read when currentUserID opens the
// conversation with peerID.
func Qualifies(currentUserID, peerID int, m models.Message) bool {
	return m.ReceiverID == currentUserID && m.SenderID == peerID && !m.IsRead
}

// PendingReads returns the ids of messages that opening the conversation
// would mark read, in input order, without duplicates.
func PendingReads(currentUserID, peerID int, msgs []models.Message) []int {
	var ids []int
	seen := make(map[int]struct{})
	for _, m := range msgs {
		if !Qualifies(currentUserID, peerID, m) {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
	}
	return ids
}

// ApplyRead returns a copy of msgs with every qualifying message read.
func ApplyRead(currentUserID, peerID int, msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		if Qualifies(currentUserID, peerID, m) {
			m.IsRead = true
		}
		out[i] = m
	}
	return out
}

// ValidateOutgoing checks a message before it is sent.
func ValidateOutgoing(senderID, receiverID int, content string) error {
	if senderID == receiverID {
		return &ValidationError{Reason: "cannot message yourself"}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Reason: "content is empty"}
	}
	return nil
}
