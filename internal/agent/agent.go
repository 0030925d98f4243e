package agent

import (
	"context"
	"time"
)

type EventType string

const (
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Runner answers one message for a session, reporting progress through emit.
type Runner interface {
	Run(ctx context.Context, sessionID string, message string, emit func(Event)) error
}

// HistoryRecord is one prior chat message handed to the model as context.
type HistoryRecord struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
