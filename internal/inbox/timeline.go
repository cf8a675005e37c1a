package inbox

import (
	"time"

	"inbox-service/internal/models"
)

// DayLayout is the bucket key format.
const DayLayout = "2006-01-02"

// GroupTimeline buckets a two-party conversation by calendar day in loc
// (UTC when nil). Buckets and their messages are ascending. Empty input
// yields an empty, non-nil slice.
func GroupTimeline(currentUserID int, msgs []models.Message, loc *time.Location) ([]models.DayBucket, error) {
	if loc == nil {
		loc = time.UTC
	}
	if err := checkTwoParty(currentUserID, msgs); err != nil {
		return nil, err
	}

	buckets := make([]models.DayBucket, 0)
	for _, m := range SortMessages(Dedupe(msgs)) {
		day := m.CreatedAt.In(loc).Format(DayLayout)
		// sorted input makes equal days contiguous
		if n := len(buckets); n > 0 && buckets[n-1].Day == day {
			buckets[n-1].Messages = append(buckets[n-1].Messages, m)
			continue
		}
		buckets = append(buckets, models.DayBucket{Day: day, Messages: []models.Message{m}})
	}
	return buckets, nil
}

// Flatten concatenates buckets in order.
func Flatten(buckets []models.DayBucket) []models.Message {
	var out []models.Message
	for _, b := range buckets {
		out = append(out, b.Messages...)
	}
	return out
}

func checkTwoParty(currentUserID int, msgs []models.Message) error {
	valid, verr := SplitValid(currentUserID, msgs)
	if verr != nil {
		return verr
	}
	if len(valid) == 0 {
		return nil
	}
	peerID := valid[0].PeerOf(currentUserID)
	var stray []int
	for _, m := range valid[1:] {
		if m.PeerOf(currentUserID) != peerID {
			stray = append(stray, m.ID)
		}
	}
	if len(stray) > 0 {
		return &ValidationError{Reason: "timeline mixes more than one peer", MessageIDs: stray}
	}
	return nil
}
