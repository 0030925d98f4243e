package tools

import (
	"context"
	"fmt"

	"murmur/internal/agent"
	"murmur/internal/llm"
	"murmur/internal/memory"
)

func readMemory(m *memory.Store, chatID int64) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "read_chat_memory",
		Description: "Read all memory entries saved for the chat.",
		Parameters:  llm.Object(nil),
	}, func(ctx context.Context, _ struct{}) (string, error) {
		es, err := m.Read(ctx, chatID)
		if err != nil {
			return "", err
		}
		return asJSON(es)
	})
}

type saveMemoryArgs struct {
	Memory string `json:"memory"`
}

func saveMemory(m *memory.Store, chatID int64) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "save_chat_memory_entry",
		Description: "Save a memory entry for the chat.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"memory": llm.String("The memory to save."),
		}, "memory"),
		Strict: true,
	}, func(ctx context.Context, args saveMemoryArgs) (string, error) {
		if args.Memory == "" {
			return "", fmt.Errorf("memory must not be empty")
		}
		if _, err := m.Save(ctx, chatID, args.Memory); err != nil {
			return "", err
		}
		return "ok", nil
	})
}

type deleteMemoryArgs struct {
	EntryID int64 `json:"entry_id"`
}

func deleteMemory(m *memory.Store, chatID int64) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "delete_chat_memory_entry",
		Description: "Delete a memory entry for the chat.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"entry_id": llm.Integer("The ID of the memory entry to delete."),
		}, "entry_id"),
		Strict: true,
	}, func(ctx context.Context, args deleteMemoryArgs) (string, error) {
		if err := m.Delete(ctx, chatID, args.EntryID); err != nil {
			return "", err
		}
		return "ok", nil
	})
}

type searchMemoryArgs struct {
	Query string `json:"query"`
}

func searchMemory(m *memory.Store, chatID int64) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "search_chat_memory",
		Description: "Find the memory entries of the chat most related to a query.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"query": llm.String("What to look for."),
		}, "query"),
		Strict: true,
	}, func(ctx context.Context, args searchMemoryArgs) (string, error) {
		res, err := m.Search(ctx, chatID, args.Query, 0)
		if err != nil {
			return "", err
		}
		return asJSON(res)
	})
}
