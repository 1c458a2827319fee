package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gather/internal/handler"
	"gather/pkg/ratelimit"
	"gather/pkg/rbac"
	"gather/pkg/trace"
	"gather/pkg/util"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	opts.JWTSecret = secret
	opts.Logger = log
	h := Handlers{
		Auth:         handler.NewAuthHandler(nil, log),
		User:         handler.NewUserHandler(nil, log),
		Task:         handler.NewTaskHandler(nil, log),
		BrainDump:    handler.NewBrainDumpHandler(nil, log),
		Habit:        handler.NewHabitHandler(nil, log),
		Mood:         handler.NewMoodHandler(nil, log),
		Insight:      handler.NewInsightHandler(nil, log),
		Assistant:    handler.NewAssistantHandler(nil, log),
		Conversation: handler.NewConversationHandler(nil, log),
		Demo:         handler.NewDemoHandler(),
		Admin:        handler.NewAdminHandler(nil, log),
	}
	return NewRouter(h, opts).Engine
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func request(r http.Handler, method, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestRouter(t, Options{Ready: []ReadyCheck{{Name: "db", Check: func(context.Context) error { return nil }}}})
	assert.Equal(t, http.StatusOK, request(healthy, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, request(healthy, http.MethodGet, "/readyz", "").Code)

	down := newTestRouter(t, Options{Ready: []ReadyCheck{{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}}})
	w := request(down, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis_not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, Options{})
	w := request(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTraceIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(trace.HeaderName))

	w = request(r, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestDemoIsPublicAndReadOnly(t *testing.T) {
	r := newTestRouter(t, Options{})
	for _, path := range []string{"/demo/tasks", "/demo/habits", "/demo/moods", "/demo/insights"} {
		assert.Equal(t, http.StatusOK, request(r, http.MethodGet, path, "").Code, path)
	}
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/demo/tasks", "").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodDelete, "/demo/habits/1", "").Code)
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(t, Options{})
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/tasks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/tasks", "garbage").Code)

	other, err := util.GenerateJWT(1, rbac.RoleUser, "another-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/tasks", other).Code)
}

func TestAdminRequiresRole(t *testing.T) {
	r := newTestRouter(t, Options{})
	w := request(r, http.MethodGet, "/admin/outbox/failed", token(t, 1, rbac.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	limiter := ratelimit.NewLimiter(rdb, 2, time.Minute, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(handler.CtxUserID, int64(5)) })
	r.Use(RateLimitMiddleware(limiter, "ai"))
	r.POST("/ai/linkify", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/ai/linkify", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/ai/linkify", "").Code)
	w := request(r, http.MethodPost, "/ai/linkify", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
