package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"inbox-service/internal/middleware"
	"inbox-service/internal/mocks"
	"inbox-service/internal/telemetry"
)

type fixedSessions map[string]int

func (f fixedSessions) Count(kind string) int {
	if kind == "" {
		total := 0
		for _, n := range f {
			total += n
		}
		return total
	}
	return f[kind]
}

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/debug/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDebugSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, fixedSessions{"inbox": 2, "conversation": 1}, true)

	req := httptest.NewRequest(http.MethodGet, "/debug/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"inbox":2,"conversation":1,"total":3}`, w.Body.String())
}

func TestDebugAuditTest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, 9)
		c.Next()
	})
	RegisterDebugRoutes(router, telemetry.NewAuditEmitter(pub, "audit.logs", "inbox-service", "test"), nil, true)

	pub.On("Publish", mock.Anything, "audit.logs", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Action == "debug.audit" && env.RequestID == "req-7"
	}), map[string]string{"x-request-id": "req-7"}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil)
	req.Header.Set("X-Request-ID", "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	pub.AssertExpectations(t)
}
