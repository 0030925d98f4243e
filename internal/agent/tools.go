package agent

import (
	"context"
	"errors"
	"log/slog"

	"murmur/internal/llm"
)

// ErrNoHandler is returned when a declarative-only tool is executed.
var ErrNoHandler = errors.New("tool has no handler")

// Handler runs a tool against the raw JSON arguments produced by the model.
type Handler func(ctx context.Context, input string) (string, error)

// Tool pairs a definition with an optional handler. Tools built with Declare
// have no handler and are only advertised to the model.
type Tool struct {
	Definition llm.ToolDefinition
	handler    Handler
}

func Declare(def llm.ToolDefinition) Tool {
	return Tool{Definition: def}
}

// NewTool builds a tool whose arguments are validated against the declared
// parameter schema and decoded into T before fn runs.
func NewTool[T any](def llm.ToolDefinition, fn func(ctx context.Context, args T) (string, error)) Tool {
	return Tool{
		Definition: def,
		handler: func(ctx context.Context, input string) (string, error) {
			args, err := parseArgs[T](def.Parameters, input)
			if err != nil {
				return "", err
			}
			return fn(ctx, args)
		},
	}
}

func (t Tool) Name() string { return t.Definition.Name }

func (t Tool) Invocable() bool { return t.handler != nil }

func (t Tool) Execute(ctx context.Context, input string) (string, error) {
	if t.handler == nil {
		return "", ErrNoHandler
	}
	return t.handler(ctx, input)
}

// Registry holds the tools offered for a single answer call.
type Registry struct {
	tools  []Tool
	byName map[string]int
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]int, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t unless a tool with the same name is already present.
func (r *Registry) Register(t Tool) bool {
	if _, exists := r.byName[t.Name()]; exists {
		slog.Warn("duplicate tool ignored", "name", t.Name())
		return false
	}
	r.byName[t.Name()] = len(r.tools)
	r.tools = append(r.tools, t)
	return true
}

// Resolve looks a tool up by exact name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition
	}
	return defs
}

func (r *Registry) Len() int { return len(r.tools) }
