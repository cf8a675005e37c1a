package inbox

import (
	"slices"
	"time"

	"inbox-service/internal/models"
)

// Conversation is the local snapshot of one open two-party conversation.
// It is not safe for concurrent use; the session goroutine that consumes
// realtime deliveries owns it.
type Conversation struct {
	userID int
	peerID int
	loc    *time.Location
	loaded bool
	index  map[int]int
	msgs   []models.Message
}

// NewConversation creates an empty, not yet loaded conversation view.
func NewConversation(userID, peerID int, loc *time.Location) *Conversation {
	if loc == nil {
		loc = time.UTC
	}
	return &Conversation{
		userID: userID,
		peerID: peerID,
		loc:    loc,
		index:  make(map[int]int),
	}
}

// PeerID returns the other participant.
func (c *Conversation) PeerID() int { return c.peerID }

// Loaded reports whether Load has completed at least once.
func (c *Conversation) Loaded() bool { return c.loaded }

// Load merges a fetched page and marks the view loaded. Messages outside
// this pair fail the load.
func (c *Conversation) Load(msgs []models.Message) error {
	var stray []int
	for _, m := range msgs {
		if !c.belongs(m) {
			stray = append(stray, m.ID)
		}
	}
	if len(stray) > 0 {
		return &ValidationError{Reason: "message outside conversation", MessageIDs: stray}
	}
	for _, m := range msgs {
		c.put(m)
	}
	c.loaded = true
	return nil
}

// Merge adds a realtime delivery. It returns true when the message was not
// seen before. Deliveries for other conversations are ignored; a message
// with identical sender and receiver is rejected.
func (c *Conversation) Merge(m models.Message) (bool, error) {
	if m.SenderID == m.ReceiverID {
		return false, &ValidationError{Reason: "sender equals receiver", MessageIDs: []int{m.ID}}
	}
	if !c.belongs(m) {
		return false, nil
	}
	return c.put(m), nil
}

// Messages returns the deduplicated messages in timeline order.
func (c *Conversation) Messages() []models.Message {
	return SortMessages(c.msgs)
}

// Timeline returns the current day buckets.
func (c *Conversation) Timeline() []models.DayBucket {
	buckets, err := GroupTimeline(c.userID, c.msgs, c.loc)
	if err != nil {
		// unreachable: every stored message passed belongs
		return []models.DayBucket{}
	}
	return buckets
}

// PendingReads returns the ids that must be marked read. Before the first
// Load it returns nil. The local view is unchanged until ConfirmReads.
func (c *Conversation) PendingReads() []int {
	if !c.loaded {
		return nil
	}
	return PendingReads(c.userID, c.peerID, c.msgs)
}

// ConfirmReads flips the given messages to read once the backend has
// accepted the transition. Unknown or non-qualifying ids are ignored.
func (c *Conversation) ConfirmReads(ids []int) {
	if len(ids) == 0 {
		return
	}
	msgs := slices.Clone(c.msgs)
	for _, id := range ids {
		i, ok := c.index[id]
		if !ok || !Qualifies(c.userID, c.peerID, msgs[i]) {
			continue
		}
		msgs[i].IsRead = true
	}
	c.msgs = msgs
}

func (c *Conversation) belongs(m models.Message) bool {
	return (m.SenderID == c.userID && m.ReceiverID == c.peerID) ||
		(m.SenderID == c.peerID && m.ReceiverID == c.userID)
}

func (c *Conversation) put(m models.Message) bool {
	if i, ok := c.index[m.ID]; ok {
		c.msgs[i] = mergeDuplicate(c.msgs[i], m)
		return false
	}
	c.index[m.ID] = len(c.msgs)
	c.msgs = append(c.msgs, m)
	return true
}
