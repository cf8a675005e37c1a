// Package inbox derives the inbox and conversation timeline views from raw
// message snapshots. Everything here is pure except Conversation, which is
// owned by one goroutine, and View, which is safe for concurrent use.
package inbox

import (
	"cmp"
	"slices"
	"strings"

	"inbox-service/internal/models"
)

const (
	labelMine   = "You"
	labelTheirs = "Them"
)

// SplitValid separates messages that involve currentUserID as exactly one
// side from those that do not. The rejected ids are returned as a
// *ValidationError (nil when everything is valid) so a caller that drops
// them still observes which records were dropped.
func SplitValid(currentUserID int, msgs []models.Message) ([]models.Message, *ValidationError) {
	valid := make([]models.Message, 0, len(msgs))
	var rejected []int
	for _, m := range msgs {
		if m.SenderID == m.ReceiverID || !m.Involves(currentUserID) {
			rejected = append(rejected, m.ID)
			continue
		}
		valid = append(valid, m)
	}
	if len(rejected) > 0 {
		return valid, &ValidationError{Reason: "message does not pair current user with a peer", MessageIDs: rejected}
	}
	return valid, nil
}

type peerAggregate struct {
	latest *models.Message
	unread int
}

// BuildConversationIndex produces one summary per peer, sorted for inbox
// display. Any malformed message fails the whole build.
func BuildConversationIndex(currentUserID int, peers []models.User, msgs []models.Message) ([]models.ConversationSummary, error) {
	valid, verr := SplitValid(currentUserID, msgs)
	if verr != nil {
		return nil, verr
	}

	aggregates := make(map[int]*peerAggregate)
	for _, m := range Dedupe(valid) {
		otherID := m.PeerOf(currentUserID)
		agg, ok := aggregates[otherID]
		if !ok {
			agg = &peerAggregate{}
			aggregates[otherID] = agg
		}
		if agg.latest == nil || compareMessages(m, *agg.latest) > 0 {
			latest := m
			agg.latest = &latest
		}
		if m.ReceiverID == currentUserID && !m.IsRead {
			agg.unread++
		}
	}

	seen := make(map[int]struct{}, len(peers))
	summaries := make([]models.ConversationSummary, 0, len(peers))
	for _, p := range peers {
		if p.ID == currentUserID {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		summary := models.ConversationSummary{Peer: p}
		if agg, ok := aggregates[p.ID]; ok {
			summary.LastMessage = preview(currentUserID, *agg.latest)
			summary.UnreadCount = agg.unread
		}
		summaries = append(summaries, summary)
	}

	slices.SortStableFunc(summaries, compareSummaries)
	return summaries, nil
}

func preview(currentUserID int, m models.Message) *models.LastMessage {
	mine := m.SenderID == currentUserID
	label := labelTheirs
	if mine {
		label = labelMine
	}
	return &models.LastMessage{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		SentByMe:  mine,
		Label:     label + ": " + m.Content,
	}
}

// compareSummaries: conversations with messages first, newest first; then
// silent peers by case-insensitive name. Peer id settles remaining ties.
func compareSummaries(a, b models.ConversationSummary) int {
	switch {
	case a.LastMessage != nil && b.LastMessage == nil:
		return -1
	case a.LastMessage == nil && b.LastMessage != nil:
		return 1
	case a.LastMessage != nil:
		if c := b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(b.LastMessage.ID, a.LastMessage.ID); c != 0 {
			return c
		}
	default:
		if c := cmp.Compare(strings.ToLower(a.Peer.Name), strings.ToLower(b.Peer.Name)); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Peer.ID, b.Peer.ID)
}
