package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/core/service"
	"github.com/tdnguyen/library-desk/internal/port"
)

type fakeConversation struct {
	messages  []domain.Message
	sessions  []domain.Session
	toolCalls []domain.ToolCall
	failList  bool
}

func (f *fakeConversation) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	f.messages = append(f.messages, domain.Message{
		ID:        int64(len(f.messages) + 1),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeConversation) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	var out []domain.Message
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeConversation) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	msgs, err := f.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeConversation) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return f.sessions, nil
}

func (f *fakeConversation) ListToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error) {
	return f.toolCalls, nil
}

type stubAgent struct {
	reply string
	err   error
}

func (a *stubAgent) Reply(ctx context.Context, sessionID string, history []domain.Message, message string) (string, error) {
	return a.reply, a.err
}

type fakeCache struct {
	seen map[string]bool
	err  error
}

func (c *fakeCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[key] {
		return false, nil
	}
	c.seen[key] = true
	return true, nil
}

func newTestServer(conv *fakeConversation, agent *stubAgent, cache *fakeCache) *http.ServeMux {
	chat := service.NewChatService(conv, agent)
	var guard port.CacheRepository
	if cache != nil {
		guard = cache
	}
	h := NewHTTPHandler(chat, conv, guard)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	mux := newTestServer(&fakeConversation{}, &stubAgent{}, nil)
	rec := doRequest(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateSession_ReturnsUUID(t *testing.T) {
	mux := newTestServer(&fakeConversation{}, &stubAgent{}, nil)
	rec := doRequest(t, mux, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp["session_id"], 36)
}

func TestChat_RoundTrip(t *testing.T) {
	conv := &fakeConversation{}
	mux := newTestServer(conv, &stubAgent{reply: "We have 3 copies."}, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/chat",
		`{"session_id":"s1","message":"any Clean Code left?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"We have 3 copies."}`, rec.Body.String())

	// both sides of the turn persisted
	require.Len(t, conv.messages, 2)
	assert.Equal(t, domain.RoleUser, conv.messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, conv.messages[1].Role)
}

func TestChat_Validation(t *testing.T) {
	mux := newTestServer(&fakeConversation{}, &stubAgent{reply: "hi"}, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing session", `{"message":"hello"}`, "session_id required"},
		{"missing message", `{"session_id":"s1"}`, "message required"},
		{"blank message", `{"session_id":"s1","message":"   "}`, "message required"},
		{"bad json", `{`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, mux, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestChat_AgentFailureStillAnswers(t *testing.T) {
	conv := &fakeConversation{}
	mux := newTestServer(conv, &stubAgent{err: errors.New("model offline")}, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/chat",
		`{"session_id":"s1","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "something went wrong")
	require.Len(t, conv.messages, 2)
}

func TestChat_DuplicateRequestRejected(t *testing.T) {
	cache := &fakeCache{}
	conv := &fakeConversation{}
	chat := service.NewChatService(conv, &stubAgent{reply: "done"})
	h := NewHTTPHandler(chat, conv, cache)
	mux := http.NewServeMux()
	h.Register(mux)

	body := `{"session_id":"s1","message":"order it","request_id":"req-1"}`
	first := doRequest(t, mux, http.MethodPost, "/api/chat", body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, mux, http.MethodPost, "/api/chat", body)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "duplicate request")

	// the duplicate never reached the chat service
	assert.Len(t, conv.messages, 2)
}

func TestChat_NoRequestIDSkipsGuard(t *testing.T) {
	cache := &fakeCache{}
	conv := &fakeConversation{}
	chat := service.NewChatService(conv, &stubAgent{reply: "done"})
	h := NewHTTPHandler(chat, conv, cache)
	mux := http.NewServeMux()
	h.Register(mux)

	body := `{"session_id":"s1","message":"hello"}`
	for i := 0; i < 2; i++ {
		rec := doRequest(t, mux, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, cache.seen)
}

func TestListMessages_FiltersBySession(t *testing.T) {
	conv := &fakeConversation{}
	_ = conv.AppendMessage(context.Background(), "s1", domain.RoleUser, "hello")
	_ = conv.AppendMessage(context.Background(), "s2", domain.RoleUser, "other")
	mux := newTestServer(conv, &stubAgent{}, nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sessions/s1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestListSessions_EmptyIsArray(t *testing.T) {
	mux := newTestServer(&fakeConversation{}, &stubAgent{}, nil)
	rec := doRequest(t, mux, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListToolCalls(t *testing.T) {
	conv := &fakeConversation{toolCalls: []domain.ToolCall{{
		ID:        1,
		Name:      "find_books",
		Args:      json.RawMessage(`{"q":"go","by":"title"}`),
		Result:    json.RawMessage(`{"matches":[]}`),
		CreatedAt: time.Now(),
	}}}
	mux := newTestServer(conv, &stubAgent{}, nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sessions/s1/tool-calls", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"find_books"`)
}

func TestCORS(t *testing.T) {
	mux := newTestServer(&fakeConversation{}, &stubAgent{}, nil)
	wrapped := CORS([]string{"http://localhost:5173"}, mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
