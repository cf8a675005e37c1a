package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-service/internal/models"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func msg(id, from, to int, created time.Time, read bool) models.Message {
	return models.Message{ID: id, SenderID: from, ReceiverID: to, Content: "m", CreatedAt: created, IsRead: read}
}

func peerIDs(summaries []models.ConversationSummary) []int {
	ids := make([]int, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.Peer.ID)
	}
	return ids
}

func TestBuildConversationIndexScenario(t *testing.T) {
	peers := []models.User{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bo"}}
	msgs := []models.Message{
		{ID: 101, SenderID: 1, ReceiverID: 9, Content: "hi", CreatedAt: at(t, "2024-01-01T10:00:00Z")},
		{ID: 102, SenderID: 9, ReceiverID: 1, Content: "hey", CreatedAt: at(t, "2024-01-01T10:05:00Z"), IsRead: true},
	}

	summaries, err := BuildConversationIndex(9, peers, msgs)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	ann := summaries[0]
	assert.Equal(t, 1, ann.Peer.ID)
	require.NotNil(t, ann.LastMessage)
	assert.Equal(t, "hey", ann.LastMessage.Content)
	assert.True(t, ann.LastMessage.SentByMe)
	assert.Equal(t, "You: hey", ann.LastMessage.Label)
	assert.Equal(t, 1, ann.UnreadCount)

	bo := summaries[1]
	assert.Equal(t, 2, bo.Peer.ID)
	assert.Nil(t, bo.LastMessage)
	assert.Zero(t, bo.UnreadCount)
}

func TestBuildConversationIndexUnreadCounts(t *testing.T) {
	base := at(t, "2024-03-01T08:00:00Z")
	peers := []models.User{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}
	msgs := []models.Message{
		msg(1, 1, 9, base, false),
		msg(2, 1, 9, base.Add(time.Minute), true),
		msg(3, 1, 9, base.Add(2*time.Minute), false),
		msg(4, 9, 1, base.Add(3*time.Minute), false),
		msg(5, 2, 9, base.Add(4*time.Minute), false),
		msg(6, 9, 2, base.Add(5*time.Minute), false),
		msg(7, 3, 9, base.Add(6*time.Minute), true),
	}

	summaries, err := BuildConversationIndex(9, peers, msgs)
	require.NoError(t, err)

	unread := map[int]int{}
	for _, s := range summaries {
		unread[s.Peer.ID] = s.UnreadCount
	}
	assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 0}, unread)
	assert.Equal(t, []int{3, 2, 1}, peerIDs(summaries))
	assert.Equal(t, "Them: m", summaries[0].LastMessage.Label)
}

func TestBuildConversationIndexNoMessages(t *testing.T) {
	peers := []models.User{{ID: 3, Name: "carl"}, {ID: 1, Name: "Bea"}, {ID: 2, Name: "adam"}}

	summaries, err := BuildConversationIndex(9, peers, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, []int{2, 1, 3}, peerIDs(summaries))
	for _, s := range summaries {
		assert.Nil(t, s.LastMessage)
		assert.Zero(t, s.UnreadCount)
	}
}

func TestBuildConversationIndexOneEntryPerPeer(t *testing.T) {
	base := at(t, "2024-03-01T08:00:00Z")
	peers := []models.User{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 1, Name: "dup"}, {ID: 9, Name: "me"}}
	msgs := []models.Message{
		msg(1, 1, 9, base, false),
		msg(2, 4, 9, base, false), // peer 4 is unknown
	}

	summaries, err := BuildConversationIndex(9, peers, msgs)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, peerIDs(summaries))
	assert.Equal(t, "a", summaries[0].Peer.Name)
}

func TestBuildConversationIndexTieBreaks(t *testing.T) {
	same := at(t, "2024-03-01T08:00:00Z")
	peers := []models.User{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	msgs := []models.Message{
		msg(10, 1, 9, same, true),
		msg(11, 1, 9, same, true),
		msg(12, 2, 9, same, true),
	}

	first, err := BuildConversationIndex(9, peers, msgs)
	require.NoError(t, err)
	assert.Equal(t, 11, first[1].LastMessage.ID)
	assert.Equal(t, []int{2, 1}, peerIDs(first))

	for i := 0; i < 20; i++ {
		again, err := BuildConversationIndex(9, []models.User{peers[1], peers[0]}, []models.Message{msgs[2], msgs[1], msgs[0]})
		require.NoError(t, err)
		assert.Equal(t, peerIDs(first), peerIDs(again))
	}
}

func TestBuildConversationIndexDuplicateDelivery(t *testing.T) {
	base := at(t, "2024-03-01T08:00:00Z")
	peers := []models.User{{ID: 1, Name: "a"}}
	m := msg(1, 1, 9, base, false)

	summaries, err := BuildConversationIndex(9, peers, []models.Message{m, m, m})
	require.NoError(t, err)
	assert.Equal(t, 1, summaries[0].UnreadCount)

	read := m
	read.IsRead = true
	summaries, err = BuildConversationIndex(9, peers, []models.Message{read, m})
	require.NoError(t, err)
	assert.Zero(t, summaries[0].UnreadCount)
}

func TestBuildConversationIndexRejectsMalformed(t *testing.T) {
	base := at(t, "2024-03-01T08:00:00Z")
	msgs := []models.Message{
		msg(1, 1, 9, base, false),
		msg(2, 1, 2, base, false),
		msg(3, 9, 9, base, false),
	}

	summaries, err := BuildConversationIndex(9, []models.User{{ID: 1, Name: "a"}}, msgs)
	require.Error(t, err)
	assert.Nil(t, summaries)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []int{2, 3}, verr.MessageIDs)
	assert.True(t, IsValidation(err))
}

func TestSplitValid(t *testing.T) {
	base := at(t, "2024-03-01T08:00:00Z")
	valid, verr := SplitValid(9, []models.Message{msg(1, 1, 9, base, false), msg(2, 3, 4, base, false)})
	require.NotNil(t, verr)
	assert.Equal(t, []int{2}, verr.MessageIDs)
	require.Len(t, valid, 1)
	assert.Equal(t, 1, valid[0].ID)

	_, verr = SplitValid(9, nil)
	assert.Nil(t, verr)
}
