package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-service/internal/models"
)

func TestGroupTimelineBuckets(t *testing.T) {
	msgs := []models.Message{
		msg(4, 9, 1, at(t, "2024-01-02T09:00:00Z"), true),
		msg(1, 1, 9, at(t, "2024-01-01T10:00:00Z"), false),
		msg(3, 1, 9, at(t, "2024-01-02T08:00:00Z"), false),
		msg(2, 9, 1, at(t, "2024-01-01T10:05:00Z"), true),
	}

	buckets, err := GroupTimeline(9, msgs, time.UTC)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-01-01", buckets[0].Day)
	assert.Equal(t, "2024-01-02", buckets[1].Day)
	assert.Equal(t, []int{1, 2}, messageIDs(buckets[0].Messages))
	assert.Equal(t, []int{3, 4}, messageIDs(buckets[1].Messages))
}

func TestGroupTimelineEmpty(t *testing.T) {
	buckets, err := GroupTimeline(9, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestGroupTimelineZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	msgs := []models.Message{msg(1, 1, 9, at(t, "2024-01-01T20:00:00Z"), false)}

	utc, err := GroupTimeline(9, msgs, time.UTC)
	require.NoError(t, err)
	local, err := GroupTimeline(9, msgs, tokyo)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", utc[0].Day)
	assert.Equal(t, "2024-01-02", local[0].Day)
}

func TestGroupTimelineDuplicateInput(t *testing.T) {
	msgs := []models.Message{
		msg(1, 1, 9, at(t, "2024-01-01T10:00:00Z"), false),
		msg(2, 9, 1, at(t, "2024-01-01T11:00:00Z"), false),
	}

	once, err := GroupTimeline(9, msgs, time.UTC)
	require.NoError(t, err)
	twice, err := GroupTimeline(9, append(append([]models.Message{}, msgs...), msgs...), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestGroupTimelineFlattenRoundTrip(t *testing.T) {
	same := at(t, "2024-01-01T23:59:00Z")
	msgs := []models.Message{
		msg(7, 1, 9, at(t, "2024-01-03T00:00:00Z"), false),
		msg(6, 9, 1, same, false),
		msg(5, 1, 9, same, false),
		msg(8, 1, 9, at(t, "2023-12-31T12:00:00Z"), false),
	}

	buckets, err := GroupTimeline(9, msgs, time.UTC)
	require.NoError(t, err)
	flat := Flatten(buckets)
	assert.Equal(t, []int{8, 5, 6, 7}, messageIDs(flat))
	for i := 1; i < len(flat); i++ {
		assert.Negative(t, compareMessages(flat[i-1], flat[i]))
	}
}

func TestGroupTimelineRejectsSecondPeer(t *testing.T) {
	msgs := []models.Message{
		msg(1, 1, 9, at(t, "2024-01-01T10:00:00Z"), false),
		msg(2, 2, 9, at(t, "2024-01-01T10:00:00Z"), false),
	}

	_, err := GroupTimeline(9, msgs, time.UTC)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []int{2}, verr.MessageIDs)
}

func messageIDs(msgs []models.Message) []int {
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}
