package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.logs", "inbox-service", "test")
	userID := 9

	pub.On("Publish", mock.Anything, "audit.logs", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.EventType == "audit_log" && env.SchemaVersion == 2 &&
			env.Payload.Action == "message.send" && env.Payload.PeerID == 1 && *env.UserID == 9
	}), map[string]string{"x-request-id": "req-1"}).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), AuditEntry{
		Level:     "INFO",
		Action:    "message.send",
		Text:      "Message sent",
		PeerID:    1,
		RequestID: "req-1",
		UserID:    &userID,
	})
	pub.AssertExpectations(t)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var emitter *AuditEmitter
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), AuditEntry{Level: "INFO", Action: "noop"})
	})
}
