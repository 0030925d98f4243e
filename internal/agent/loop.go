package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"murmur/internal/llm"
	"murmur/internal/trace"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DefaultMaxRounds caps the number of model round trips per answer.
const DefaultMaxRounds = 10

const (
	resultUnknownTool = "error: unknown tool"
	resultNoHandler   = "error: tool has no handler"
)

type Option func(*Answerer)

func WithSystemPrompt(s string) Option {
	return func(a *Answerer) { a.systemPrompt = s }
}

func WithMaxRounds(n int) Option {
	return func(a *Answerer) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// Answerer drives the tool-augmented conversation with the model. It holds
// no per-call state and is safe for concurrent use.
type Answerer struct {
	provider     llm.Provider
	systemPrompt string
	maxRounds    int
}

func NewAnswerer(provider llm.Provider, opts ...Option) *Answerer {
	a := &Answerer{
		provider:  provider,
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.systemPrompt == "" {
		a.systemPrompt = defaultSystemPrompt(a.maxRounds)
	}
	return a
}

// conversation is the message sequence built during one Answer call.
type conversation struct {
	messages []llm.Message
	rounds   int
}

func (c *conversation) append(m llm.Message) {
	c.messages = append(c.messages, m)
}

// answer returns the text of the most recent assistant message. At the round
// cap the last message is a tool result, which is raw tool output and never
// meant for the user.
func (c *conversation) answer() string {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == llm.RoleAssistant {
			return c.messages[i].Content
		}
	}
	return ""
}

// Answer produces a reply to content. history is rendered as context ahead of
// content and tools are the only tools the model may call during this call.
// An empty result means the model produced no text.
func (a *Answerer) Answer(ctx context.Context, content string, history []HistoryRecord, tools []Tool) (string, error) {
	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = ContextWithRunID(ctx, runID)
	}

	ctx, span := trace.Tracer().Start(ctx, "agent.answer",
		oteltrace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("agent.history_records", len(history)),
			attribute.Int("agent.tools", len(tools)),
		),
	)
	defer span.End()

	answer, rounds, err := a.run(ctx, runID, content, history, tools)
	span.SetAttributes(attribute.Int("agent.rounds", rounds))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return answer, nil
}

func (a *Answerer) run(ctx context.Context, runID, content string, history []HistoryRecord, tools []Tool) (string, int, error) {
	conv, err := a.begin(content, history)
	if err != nil {
		return "", 0, err
	}

	registry := NewRegistry(tools...)
	defs := registry.Definitions()
	emit := EmitFromContext(ctx)
	log := slog.With("run_id", runID)

	for conv.rounds < a.maxRounds {
		if err := ctx.Err(); err != nil {
			return "", conv.rounds, err
		}

		reply, err := a.complete(ctx, conv, defs)
		if err != nil {
			return "", conv.rounds, err
		}
		conv.append(reply)
		conv.rounds++

		if len(reply.ToolCalls) == 0 {
			log.Debug("agent: final reply", "rounds", conv.rounds, "length", len(reply.Content))
			return conv.answer(), conv.rounds, nil
		}

		log.Debug("agent: tool calls requested", "round", conv.rounds, "count", len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			conv.append(a.invoke(ctx, log, registry, call, emit))
		}
	}

	log.Warn("agent: round cap reached", "rounds", conv.rounds)
	return conv.answer(), conv.rounds, nil
}

// begin seeds the conversation with instructions, serialized history and
// the user content.
func (a *Answerer) begin(content string, history []HistoryRecord) (*conversation, error) {
	if history == nil {
		history = []HistoryRecord{}
	}
	blob, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}

	conv := &conversation{messages: make([]llm.Message, 0, 8)}
	conv.append(llm.SystemMessage(a.systemPrompt))
	conv.append(llm.UserMessage("<history>" + string(blob) + "</history>"))
	conv.append(llm.UserMessage(content))
	return conv, nil
}

func (a *Answerer) complete(ctx context.Context, conv *conversation, defs []llm.ToolDefinition) (llm.Message, error) {
	ctx, span := trace.Tracer().Start(ctx, "llm.complete",
		oteltrace.WithAttributes(
			attribute.Int("llm.round", conv.rounds),
			attribute.Int("llm.messages", len(conv.messages)),
		),
	)
	defer span.End()

	reply, err := a.provider.Complete(ctx, conv.messages, defs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.Message{}, err
	}
	reply.Role = llm.RoleAssistant
	span.SetAttributes(attribute.Int("llm.tool_calls", len(reply.ToolCalls)))
	return reply, nil
}

// invoke resolves and runs one tool call. Every call yields exactly one tool
// message; failures are reported to the model as "error: ..." results.
func (a *Answerer) invoke(ctx context.Context, log *slog.Logger, registry *Registry, call llm.ToolCall, emit func(Event)) llm.Message {
	emit(Event{Type: EventToolCall, Data: map[string]string{
		"id":        call.ID,
		"name":      call.Name,
		"arguments": call.Arguments,
	}})

	result := a.execute(ctx, log, registry, call)

	emit(Event{Type: EventToolResult, Data: map[string]string{
		"id":      call.ID,
		"name":    call.Name,
		"content": result,
	}})
	return llm.ToolMessage(call.ID, result)
}

func (a *Answerer) execute(ctx context.Context, log *slog.Logger, registry *Registry, call llm.ToolCall) string {
	tool, ok := registry.Resolve(call.Name)
	if !ok {
		log.Warn("unknown tool call", "name", call.Name, "call_id", call.ID)
		return resultUnknownTool
	}
	if !tool.Invocable() {
		log.Error("declarative-only tool requested", "name", call.Name, "call_id", call.ID)
		return resultNoHandler
	}

	result, err := executeTraced(ctx, tool, call.ID, call.Arguments)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			log.Warn("invalid tool arguments", "name", call.Name, "call_id", call.ID, "error", err)
		} else {
			log.Warn("tool execution failed", "name", call.Name, "call_id", call.ID, "error", err)
		}
		return "error: " + err.Error()
	}
	return result
}
