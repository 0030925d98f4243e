package agent

import (
	"context"
	"errors"
	"testing"

	"murmur/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveIsExactAndCaseSensitive(t *testing.T) {
	r := NewRegistry(
		Declare(llm.ToolDefinition{Name: "get_week_messages"}),
		Declare(llm.ToolDefinition{Name: "read_chat_memory"}),
	)

	tool, ok := r.Resolve("get_week_messages")
	require.True(t, ok)
	assert.Equal(t, "get_week_messages", tool.Name())

	_, ok = r.Resolve("GET_WEEK_MESSAGES")
	assert.False(t, ok)
	_, ok = r.Resolve("get_week")
	assert.False(t, ok)
	_, ok = r.Resolve("")
	assert.False(t, ok)
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	first := NewTool(llm.ToolDefinition{Name: "dup"}, func(context.Context, struct{}) (string, error) { return "first", nil })
	second := NewTool(llm.ToolDefinition{Name: "dup"}, func(context.Context, struct{}) (string, error) { return "second", nil })

	r := NewRegistry(first)
	assert.False(t, r.Register(second))
	assert.Equal(t, 1, r.Len())

	tool, ok := r.Resolve("dup")
	require.True(t, ok)
	out, err := tool.Execute(context.Background(), "{}")
	require.NoError(t, err)
	assert.Equal(t, "first", out)
}

func TestRegistry_DefinitionsKeepOrder(t *testing.T) {
	r := NewRegistry(
		Declare(llm.ToolDefinition{Name: "c"}),
		Declare(llm.ToolDefinition{Name: "a"}),
		Declare(llm.ToolDefinition{Name: "b"}),
	)
	var names []string
	for _, d := range r.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestDeclaredToolRefusesExecution(t *testing.T) {
	tool := Declare(llm.ToolDefinition{Name: "note"})
	assert.False(t, tool.Invocable())
	_, err := tool.Execute(context.Background(), "{}")
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestNewTool_ValidatesArguments(t *testing.T) {
	type args struct {
		URL     string `json:"url"`
		EntryID int64  `json:"entry_id"`
	}
	schema := llm.Object(map[string]*llm.Schema{
		"url":      llm.String("page"),
		"entry_id": llm.Integer("id").Between(1, 1000),
	}, "url")

	var got args
	tool := NewTool(llm.ToolDefinition{Name: "t", Parameters: schema}, func(ctx context.Context, a args) (string, error) {
		got = a
		return "ok", nil
	})

	cases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: `{"url":"https://example.com","entry_id":7}`},
		{name: "missing required", input: `{"entry_id":7}`, wantErr: "missing required field url"},
		{name: "wrong type", input: `{"url":5}`, wantErr: "field url: expected string, got number"},
		{name: "fractional integer", input: `{"url":"u","entry_id":1.5}`, wantErr: "expected integer"},
		{name: "out of range", input: `{"url":"u","entry_id":0}`, wantErr: "must be >= 1"},
		{name: "unexpected field", input: `{"url":"u","extra":true}`, wantErr: "unexpected field extra"},
		{name: "not an object", input: `[1,2]`, wantErr: "expected object, got array"},
		{name: "malformed", input: `{"url":`, wantErr: "parsing JSON"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tool.Execute(context.Background(), tc.input)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok", out)
				return
			}
			require.Error(t, err)
			var argErr *ArgumentError
			assert.True(t, errors.As(err, &argErr))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	assert.Equal(t, args{URL: "https://example.com", EntryID: 7}, got)
}

func TestNewTool_EmptyInputIsEmptyObject(t *testing.T) {
	tool := NewTool(llm.ToolDefinition{Name: "get_day_messages", Parameters: llm.Object(nil)},
		func(context.Context, struct{}) (string, error) { return "[]", nil })

	out, err := tool.Execute(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestNewTool_EnumAndAdditionalProperties(t *testing.T) {
	schema := llm.Object(map[string]*llm.Schema{
		"mode": {Type: "string", Enum: []string{"day", "week"}},
	}, "mode")
	schema.AdditionalProperties = true

	tool := NewTool(llm.ToolDefinition{Name: "t", Parameters: schema},
		func(context.Context, map[string]any) (string, error) { return "ok", nil })

	_, err := tool.Execute(context.Background(), `{"mode":"month"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of day, week")

	out, err := tool.Execute(context.Background(), `{"mode":"week","other":1}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
