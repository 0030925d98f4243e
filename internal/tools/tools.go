// Package tools builds the tool set offered to the model for one answer.
package tools

import (
	"context"

	"murmur/internal/agent"
	"murmur/internal/fetch"
	"murmur/internal/history"
	"murmur/internal/memory"
)

// PageFetcher is satisfied by *fetch.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

// Deps are the collaborators tools run against. Search may be nil, which
// leaves web_search out.
type Deps struct {
	History *history.Store
	Memory  *memory.Store
	Fetcher PageFetcher
	Search  Searcher
}

// ForChat returns every tool bound to the chat with local row id chatID.
func ForChat(d Deps, chatID int64) []agent.Tool {
	ts := []agent.Tool{
		dayMessages(d.History, chatID),
		weekMessages(d.History, chatID),
		lastMessages(d.History, chatID),
	}
	ts = append(ts, Web(d)...)
	ts = append(ts,
		readMemory(d.Memory, chatID),
		saveMemory(d.Memory, chatID),
		deleteMemory(d.Memory, chatID),
	)
	if d.Memory.Searchable() {
		ts = append(ts, searchMemory(d.Memory, chatID))
	}
	return ts
}

// Web returns the tools that need no chat: page fetch and, when configured,
// web search.
func Web(d Deps) []agent.Tool {
	var ts []agent.Tool
	if d.Fetcher != nil {
		ts = append(ts, browserContent(d.Fetcher))
	}
	if d.Search != nil {
		ts = append(ts, webSearch(d.Search))
	}
	return ts
}
