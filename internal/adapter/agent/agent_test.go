package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/core/service"
)

// scriptedTransport replays canned API responses in order and captures
// each request body.
type scriptedTransport struct {
	responses [][]byte
	requests  [][]byte
}

func (f *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	f.requests = append(f.requests, b)

	body := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func newTestAgent(transport *scriptedTransport, tools []ToolDefinition) *Anthropic {
	return NewAnthropic("test-model", "You are a test clerk.", tools,
		option.WithHTTPClient(&http.Client{Transport: transport}),
		option.WithAPIKey("test-key"),
	)
}

func TestReply_PlainText(t *testing.T) {
	transport := &scriptedTransport{responses: [][]byte{
		[]byte(`{"role":"assistant","content":[{"type":"text","text":"We have it in stock."}]}`),
	}}
	a := newTestAgent(transport, Registry(&stubCatalog{}))

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "hello"},
		{Role: domain.RoleAssistant, Content: "hi, how can I help?"},
	}
	reply, err := a.Reply(context.Background(), "sess-1", history, "do you have Clean Code?")
	require.NoError(t, err)
	assert.Equal(t, "We have it in stock.", reply)

	require.Len(t, transport.requests, 1)
	var req struct {
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(transport.requests[0], &req))
	require.Len(t, req.System, 1)
	assert.Equal(t, "You are a test clerk.", req.System[0].Text)
	// history plus the current user message
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Len(t, req.Tools, 6)
}

func TestReply_RunsToolAndFeedsResultBack(t *testing.T) {
	transport := &scriptedTransport{responses: [][]byte{
		[]byte(`{"role":"assistant","content":[
			{"type":"tool_use","id":"t1","name":"restock_book","input":{"isbn":"123","qty":5}}
		]}`),
		[]byte(`{"role":"assistant","content":[{"type":"text","text":"Restocked to 15."}]}`),
	}}
	stub := &stubCatalog{result: service.StockResult{ISBN: "123", Title: "T", NewStock: 15}}
	a := newTestAgent(transport, Registry(stub))

	reply, err := a.Reply(context.Background(), "sess-9", nil, "add 5 copies of 123")
	require.NoError(t, err)
	assert.Equal(t, "Restocked to 15.", reply)

	assert.Equal(t, "restock_book", stub.lastOp)
	assert.Equal(t, "sess-9", stub.lastSession, "session id must come from the caller, not the model")
	assert.Equal(t, 5, stub.lastQty)

	// Second request must carry the tool_use and its tool_result adjacently.
	require.Len(t, transport.requests, 2)
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type      string `json:"type"`
				ToolUseID string `json:"tool_use_id"`
				IsError   bool   `json:"is_error"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(transport.requests[1], &req))
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "tool_use", req.Messages[1].Content[0].Type)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "tool_result", req.Messages[2].Content[0].Type)
	assert.Equal(t, "t1", req.Messages[2].Content[0].ToolUseID)
	assert.False(t, req.Messages[2].Content[0].IsError)
}

func TestReply_UnknownToolReturnsErrorResult(t *testing.T) {
	transport := &scriptedTransport{responses: [][]byte{
		[]byte(`{"role":"assistant","content":[
			{"type":"tool_use","id":"t1","name":"does_not_exist","input":{}}
		]}`),
		[]byte(`{"role":"assistant","content":[{"type":"text","text":"Sorry, I cannot do that."}]}`),
	}}
	a := newTestAgent(transport, Registry(&stubCatalog{}))

	reply, err := a.Reply(context.Background(), "sess-2", nil, "???")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I cannot do that.", reply)

	var req struct {
		Messages []struct {
			Content []struct {
				Type    string `json:"type"`
				IsError bool   `json:"is_error"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(transport.requests[1], &req))
	last := req.Messages[len(req.Messages)-1]
	assert.True(t, last.Content[0].IsError)
}

func TestReply_ToolLoopBounded(t *testing.T) {
	// The model keeps asking for tools forever; Reply must give up.
	transport := &scriptedTransport{responses: [][]byte{
		[]byte(`{"role":"assistant","content":[
			{"type":"tool_use","id":"t1","name":"inventory_summary","input":{}}
		]}`),
	}}
	stub := &stubCatalog{result: service.SummaryResult{}}
	a := newTestAgent(transport, Registry(stub))

	_, err := a.Reply(context.Background(), "sess-3", nil, "summary please")
	require.Error(t, err)
	assert.Len(t, transport.requests, maxToolTurns)
}
