package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gather/internal/conversation"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/search"
	"gather/internal/service"
	"gather/pkg/circuitbreaker"
	"gather/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine mounts routes behind a stub that authenticates as user 7.
func newEngine(register func(r gin.IRoutes)) *gin.Engine {
	r := gin.New()
	g := r.Group("/", func(c *gin.Context) {
		c.Set(CtxUserID, int64(7))
		c.Set(CtxRole, "user")
	})
	register(g)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title", model.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("load: %w", model.ErrNotFound), http.StatusNotFound},
		{model.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: back", conversation.ErrInvalidTransition), http.StatusConflict},
		{circuitbreaker.ErrCircuitBreakerOpen, http.StatusServiceUnavailable},
		{llm.ErrNotConfigured, http.StatusServiceUnavailable},
		{search.ErrNotConfigured, http.StatusServiceUnavailable},
		{&llm.APIError{StatusCode: 529}, http.StatusBadGateway},
		{llm.ErrBadReply, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

type stubTasks struct {
	TaskService
	getErr  error
	created *model.Task
}

func (s *stubTasks) Get(_ context.Context, userID, id int64) (*model.Task, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &model.Task{ID: id, UserID: userID, Title: "Water plants"}, nil
}

func (s *stubTasks) Create(_ context.Context, userID int64, in service.CreateTaskInput, source model.TaskSource) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	s.created = &model.Task{ID: 1, UserID: userID, Title: in.Title, Source: source}
	return s.created, nil
}

func TestTaskHandlerErrors(t *testing.T) {
	tasks := &stubTasks{}
	h := NewTaskHandler(tasks, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) {
		g.GET("/tasks/:id", h.Get)
		g.POST("/tasks", h.Create)
	})

	w := do(r, http.MethodGet, "/tasks/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.UserID)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/tasks/abc", "").Code)

	tasks.getErr = model.ErrNotFound
	w = do(r, http.MethodGet, "/tasks/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	tasks.getErr = errors.New("connection reset")
	w = do(r, http.MethodGet, "/tasks/3", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")

	w = do(r, http.MethodPost, "/tasks", `{"title":"Call mum"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.SourceManual, tasks.created.Source)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tasks", `{"title":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tasks", `{not json`).Code)
}

type stubAssistant struct {
	AssistantService
	deltas  []string
	failErr error
}

func (s *stubAssistant) Chat(_ context.Context, _ int64, in service.ChatInput) (*service.ChatReply, error) {
	return service.Linkified("See https://github.com/golang/go, it helps."), nil
}

func (s *stubAssistant) ChatStream(ctx context.Context, _ int64, in service.ChatInput) (<-chan string, <-chan error, error) {
	if len(in.Messages) == 0 {
		return nil, nil, fmt.Errorf("%w: empty conversation", model.ErrInvalidInput)
	}
	deltas := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errs)
		for _, d := range s.deltas {
			select {
			case deltas <- d:
			case <-ctx.Done():
				return
			}
		}
		if s.failErr != nil {
			errs <- s.failErr
		}
	}()
	return deltas, errs, nil
}

func TestChatIsLinkified(t *testing.T) {
	h := NewAssistantHandler(&stubAssistant{}, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) { g.POST("/ai/chat", h.Chat) })

	w := do(r, http.MethodPost, "/ai/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var reply service.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "See [GitHub](https://github.com/golang/go), it helps.", reply.Markdown)
}

func TestChatStreamFraming(t *testing.T) {
	h := NewAssistantHandler(&stubAssistant{deltas: []string{"Hello", " there"}}, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) { g.POST("/ai/chat/stream", h.ChatStream) })

	w := do(r, http.MethodPost, "/ai/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "data: {\"delta\":\"Hello\"}\n\ndata: {\"delta\":\" there\"}\n\ndata: [DONE]\n\n", w.Body.String())

	w = do(r, http.MethodPost, "/ai/chat/stream", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatStreamReportsLateFailure(t *testing.T) {
	h := NewAssistantHandler(&stubAssistant{deltas: []string{"Hel"}, failErr: errors.New("overloaded")}, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) { g.POST("/ai/chat/stream", h.ChatStream) })

	w := do(r, http.MethodPost, "/ai/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data: {"error":"assistant unavailable"}`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.NotContains(t, body, "overloaded")
}

func TestChatStreamUnavailableIs503(t *testing.T) {
	client := llm.NewClient(config.AnthropicConfig{}, zap.NewNop())
	svc := service.NewAssistantService(llm.NewAssistant(client), nil, nil, zap.NewNop())
	h := NewAssistantHandler(svc, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) {
		g.POST("/ai/chat", h.Chat)
		g.POST("/ai/chat/stream", h.ChatStream)
	})

	for _, path := range []string{"/ai/chat", "/ai/chat/stream"} {
		w := do(r, http.MethodPost, path, `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"), path)
		assert.JSONEq(t, `{"error":"anthropic api key not configured"}`, w.Body.String(), path)
	}
}

func TestLinkifyEndpoint(t *testing.T) {
	h := NewAssistantHandler(&stubAssistant{}, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) { g.POST("/ai/linkify", h.Linkify) })

	w := do(r, http.MethodPost, "/ai/linkify", `{"text":"map: https://maps.google.com/?q=cafe"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var reply service.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	require.Len(t, reply.Segments, 2)
	assert.Equal(t, "Google Maps", reply.Segments[1].Label)
}

func TestDemoEndpoints(t *testing.T) {
	h := NewDemoHandler()
	r := gin.New()
	r.GET("/demo/tasks", h.Tasks)
	r.GET("/demo/insights", h.Insights)
	r.POST("/demo/*any", h.ReadOnly)

	w := do(r, http.MethodGet, "/demo/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Tasks []model.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Tasks)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/demo/insights", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/demo/tasks", `{"title":"x"}`).Code)
}

type stubConversations struct {
	ConversationService
}

func (stubConversations) HandleEvent(_ context.Context, userID int64, id string, ev conversation.Event) (*conversation.Session, error) {
	if ev.Type == conversation.EventBack {
		return nil, fmt.Errorf("%w: back in state idle", conversation.ErrInvalidTransition)
	}
	s := conversation.NewSession(id, userID, time.Now())
	s.State = conversation.StateAwaitingClarifyingAnswer
	s.Questions = []conversation.Question{{Question: "When?", Options: []string{"Today", "This week"}}}
	return s, nil
}

func TestConversationEventView(t *testing.T) {
	h := NewConversationHandler(stubConversations{}, zap.NewNop())
	r := newEngine(func(g gin.IRoutes) { g.POST("/conversations/:id/events", h.Event) })

	w := do(r, http.MethodPost, "/conversations/abc/events", `{"type":"submit","text":"dentist"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var v struct {
		ID       string                 `json:"id"`
		State    string                 `json:"state"`
		Question *conversation.Question `json:"question"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "abc", v.ID)
	require.NotNil(t, v.Question)
	assert.Equal(t, "When?", v.Question.Question)

	w = do(r, http.MethodPost, "/conversations/abc/events", `{"type":"back"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
