package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	bravesearch "github.com/cnosuke/go-brave-search"

	"murmur/internal/agent"
	"murmur/internal/llm"
)

const (
	defaultSearchCount = 5
	maxSearchCount     = 20
)

type SearchResult struct {
	Title       string
	URL         string
	Description string
}

type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// Brave searches the web with the Brave Search API.
type Brave struct {
	client *bravesearch.Client
}

func NewBrave(apiKey string) (*Brave, error) {
	client, err := bravesearch.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("brave client: %w", err)
	}
	return &Brave{client: client}, nil
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	resp, err := b.client.WebSearch(ctx, query, &bravesearch.WebSearchParams{Count: count})
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	var out []SearchResult
	for _, r := range resp.GetWebResults() {
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return out, nil
}

type browserArgs struct {
	URL string `json:"url"`
}

func browserContent(f PageFetcher) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "get_browser_content",
		Description: "Fetch HTML content from a website URL.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"url": llm.String("The website URL to fetch HTML content from"),
		}, "url"),
		Strict: true,
	}, func(ctx context.Context, args browserArgs) (string, error) {
		slog.Debug("fetching page", "url", args.URL)
		p, err := f.Fetch(ctx, args.URL)
		if err != nil {
			return "", err
		}
		return truncate(p.String()), nil
	})
}

type searchArgs struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func webSearch(s Searcher) agent.Tool {
	return agent.NewTool(llm.ToolDefinition{
		Name:        "web_search",
		Description: "Search the web. Returns titles, URLs and snippets.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"query": llm.String("Search query."),
			"count": llm.Integer("Number of results to return (default 5, max 20).").Between(0, maxSearchCount),
		}, "query", "count"),
		Strict: true,
	}, func(ctx context.Context, args searchArgs) (string, error) {
		if strings.TrimSpace(args.Query) == "" {
			return "", fmt.Errorf("query is required")
		}
		count := args.Count
		if count <= 0 {
			count = defaultSearchCount
		}

		slog.Debug("web search", "query", args.Query, "count", count)
		results, err := s.Search(ctx, args.Query, count)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No results found.", nil
		}

		var b strings.Builder
		for i, r := range results {
			if i > 0 {
				b.WriteString("\n---\n")
			}
			fmt.Fprintf(&b, "%s\n%s\n%s", r.Title, r.URL, r.Description)
		}
		return truncate(b.String()), nil
	})
}
