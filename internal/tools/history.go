package tools

import (
	"context"
	"time"

	"murmur/internal/agent"
	"murmur/internal/history"
	"murmur/internal/llm"
)

const maxLastMessages = 100

func dayMessages(h *history.Store, chatID int64) agent.Tool {
	return messagesSince(h, chatID, "get_day_messages", "Get messages for the last 24 hours.", history.Day)
}

func weekMessages(h *history.Store, chatID int64) agent.Tool {
	return messagesSince(h, chatID, "get_week_messages", "Get messages for last 7 days.", history.Week)
}

func messagesSince(h *history.Store, chatID int64, name, desc string, d time.Duration) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        name,
		Description: desc,
		Parameters:  llm.Object(nil),
	}, func(ctx context.Context, _ struct{}) (string, error) {
		es, err := h.Since(ctx, chatID, d)
		if err != nil {
			return "", err
		}
		return asJSON(history.Records(es))
	})
}

type lastMessagesArgs struct {
	Count int `json:"count"`
}

func lastMessages(h *history.Store, chatID int64) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "get_last_messages",
		Description: "Get the most recent messages of this chat, newest first.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"count": llm.Integer("How many messages to return.").Between(1, maxLastMessages),
		}, "count"),
		Strict: true,
	}, func(ctx context.Context, args lastMessagesArgs) (string, error) {
		es, err := h.Last(ctx, chatID, args.Count)
		if err != nil {
			return "", err
		}
		return asJSON(history.Records(es))
	})
}
