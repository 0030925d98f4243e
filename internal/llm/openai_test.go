package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 0,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "logprobs": null,
    "message": {
      "role": "assistant",
      "content": null,
      "refusal": null,
      "tool_calls": [
        {"id": "call_1", "type": "function", "function": {"name": "get_day_messages", "arguments": "{}"}},
        {"id": "call_2", "type": "function", "function": {"name": "get_browser_content", "arguments": "{\"url\":\"https://example.com\"}"}}
      ]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const textCompletion = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 0,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "logprobs": null,
    "message": {"role": "assistant", "content": "Nothing new.", "refusal": null}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func newTestServer(t *testing.T, status int, body string, seen *map[string]any) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestComplete_ParsesToolCalls(t *testing.T) {
	var req map[string]any
	srv, calls := newTestServer(t, http.StatusOK, toolCallCompletion, &req)

	p := NewOpenAI(srv.URL+"/v1", "test", "")
	msg, err := p.Complete(testContext(t), []Message{
		SystemMessage("be brief"),
		UserMessage("<history>[]</history>"),
		UserMessage("what happened today?"),
	}, []ToolDefinition{{
		Name:        "get_day_messages",
		Description: "Get messages for the last 24 hours.",
		Parameters:  Object(nil),
	}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Empty(t, msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "get_day_messages", Arguments: "{}"}, msg.ToolCalls[0])
	assert.Equal(t, "get_browser_content", msg.ToolCalls[1].Name)
	assert.JSONEq(t, `{"url":"https://example.com"}`, msg.ToolCalls[1].Arguments)

	assert.Equal(t, DefaultModel, req["model"])
	assert.EqualValues(t, 0, req["temperature"])

	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

	tools, ok := req["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "get_day_messages", fn["name"])
	assert.Equal(t, false, fn["strict"])
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, false, params["additionalProperties"])
}

func TestComplete_RoundTripsToolMessages(t *testing.T) {
	var req map[string]any
	srv, _ := newTestServer(t, http.StatusOK, textCompletion, &req)

	p := NewOpenAI(srv.URL+"/v1", "test", "gpt-test")
	msg, err := p.Complete(testContext(t), []Message{
		UserMessage("what happened today?"),
		AssistantMessage("", ToolCall{ID: "call_1", Name: "get_day_messages", Arguments: "{}"}),
		ToolMessage("call_1", "[]"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nothing new.", msg.Content)
	assert.Empty(t, msg.ToolCalls)

	assert.Equal(t, "gpt-test", req["model"])
	_, hasTools := req["tools"]
	assert.False(t, hasTools, "tools should be omitted when none are offered")

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].(map[string]any)["id"])

	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
}

func TestComplete_SurfacesHTTPErrorsWithoutRetry(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)

	p := NewOpenAI(srv.URL+"/v1", "test", "")
	_, err := p.Complete(testContext(t), []Message{UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_500")
	assert.Equal(t, int64(1), calls.Load())
}

func TestSchemaMap(t *testing.T) {
	s := Object(map[string]*Schema{
		"count": Integer("How many").Between(1, 100),
	}, "count")

	m := s.Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"count"}, m["required"])
	assert.Equal(t, false, m["additionalProperties"])

	props := m["properties"].(map[string]any)
	count := props["count"].(map[string]any)
	assert.Equal(t, "integer", count["type"])
	assert.Equal(t, float64(1), count["minimum"])
	assert.Equal(t, float64(100), count["maximum"])

	var nilSchema *Schema
	empty := nilSchema.Map()
	assert.Equal(t, map[string]any{}, empty["properties"])
}
