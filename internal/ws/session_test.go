package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inbox-service/internal/inbox"
	"inbox-service/internal/middleware"
	"inbox-service/internal/mocks"
	"inbox-service/internal/models"
	"inbox-service/internal/realtime"
	"inbox-service/internal/services"
)

const testSecret = "ws-test-secret"

func stamp(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

func setupServer(t *testing.T, users *mocks.UserRepositoryMock, messages *mocks.MessageRepositoryMock) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rt := realtime.NewHub()
	svc := services.NewInboxService(users, messages, rt, nil, time.UTC, 20)
	handler := NewHandler(NewHub(), rt, svc, middleware.NewTokenValidator(testSecret))

	router := gin.New()
	router.GET("/ws/inbox", handler.Inbox)
	router.GET("/ws/conversations/:peer_id", handler.Conversation)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, rt
}

func dial(t *testing.T, srv *httptest.Server, path string, userID int) *websocket.Conn {
	t.Helper()
	token, err := middleware.NewTokenValidator(testSecret).IssueToken(userID, time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestHandshakeRequiresToken(t *testing.T) {
	srv, _ := setupServer(t, new(mocks.UserRepositoryMock), new(mocks.MessageRepositoryMock))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/inbox"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeRejectsUnknownPeer(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	srv, _ := setupServer(t, users, new(mocks.MessageRepositoryMock))
	users.On("GetUser", mock.Anything, 4).Return(nil, inbox.ErrNotFound).Once()

	token, err := middleware.NewTokenValidator(testSecret).IssueToken(9, time.Minute)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/conversations/4?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConversationSessionMergesDeliveries(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv, rt := setupServer(t, users, messages)

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Name: "Ann"}, nil).Once()
	messages.On("ListMessages", mock.Anything, 9, 1, 20, 0).Return([]models.Message{
		{ID: 1, SenderID: 1, ReceiverID: 9, Content: "hi", CreatedAt: stamp("2024-03-01T10:00:00Z")},
	}, nil).Once()
	messages.On("MarkRead", mock.Anything, 1, 9).Return(int64(1), nil)

	conn := dial(t, srv, "/ws/conversations/1", 9)

	var first models.ConversationEvent
	readJSON(t, conn, &first)
	assert.Equal(t, "timeline", first.Type)
	assert.Equal(t, []int{1}, first.ReadIDs)
	require.Len(t, first.Timeline, 1)
	assert.True(t, first.Timeline[0].Messages[0].IsRead)

	incoming := models.Message{ID: 2, SenderID: 1, ReceiverID: 9, Content: "there", CreatedAt: stamp("2024-03-02T08:00:00Z")}
	rt.Publish(incoming)

	var second models.ConversationEvent
	readJSON(t, conn, &second)
	assert.Equal(t, "message", second.Type)
	require.NotNil(t, second.Message)
	assert.Equal(t, 2, second.Message.ID)
	assert.Equal(t, []int{2}, second.ReadIDs)
	require.Len(t, second.Timeline, 2)
	assert.Equal(t, "2024-03-02", second.Timeline[1].Day)

	// the echo of an already merged message is not pushed again
	rt.Publish(incoming)
	rt.Publish(models.Message{ID: 3, SenderID: 5, ReceiverID: 9, Content: "elsewhere", CreatedAt: stamp("2024-03-02T08:01:00Z")})
	rt.Publish(models.Message{ID: 4, SenderID: 9, ReceiverID: 1, Content: "reply", CreatedAt: stamp("2024-03-02T08:02:00Z")})

	var third models.ConversationEvent
	readJSON(t, conn, &third)
	require.NotNil(t, third.Message)
	assert.Equal(t, 4, third.Message.ID)
	assert.Empty(t, third.ReadIDs)

	messages.AssertNumberOfCalls(t, "MarkRead", 2)
}

func TestInboxSessionRecomputesOnInsert(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv, rt := setupServer(t, users, messages)

	peers := []models.User{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bo"}}
	first := models.Message{ID: 10, SenderID: 1, ReceiverID: 9, Content: "hi", CreatedAt: stamp("2024-03-01T10:00:00Z")}
	second := models.Message{ID: 11, SenderID: 2, ReceiverID: 9, Content: "yo", CreatedAt: stamp("2024-03-01T11:00:00Z")}

	users.On("ListOtherUsers", mock.Anything, 9).Return(peers, nil)
	messages.On("ListMessagesForUser", mock.Anything, 9).Return([]models.Message{first}, nil).Once()
	messages.On("ListMessagesForUser", mock.Anything, 9).Return([]models.Message{first, second}, nil).Once()

	conn := dial(t, srv, "/ws/inbox", 9)

	var initial models.InboxEvent
	readJSON(t, conn, &initial)
	require.Len(t, initial.Conversations, 2)
	assert.Equal(t, 1, initial.Conversations[0].Peer.ID)

	rt.Publish(second)

	var updated models.InboxEvent
	readJSON(t, conn, &updated)
	require.Len(t, updated.Conversations, 2)
	assert.Equal(t, 2, updated.Conversations[0].Peer.ID)
	assert.Equal(t, "Them: yo", updated.Conversations[0].LastMessage.Label)
	assert.Equal(t, 1, updated.Conversations[0].UnreadCount)
}
