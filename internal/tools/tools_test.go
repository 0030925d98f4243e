package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/agent"
	"murmur/internal/chats"
	"murmur/internal/config"
	"murmur/internal/db"
	"murmur/internal/fetch"
	"murmur/internal/history"
	"murmur/internal/memory"
)

type fakeFetcher struct {
	page fetch.Page
	err  error
}

func (f fakeFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	p := f.page
	p.URL = url
	return p, f.err
}

type fakeSearcher struct {
	results []SearchResult
	count   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, count int) ([]SearchResult, error) {
	f.count = count
	return f.results, nil
}

type env struct {
	deps   Deps
	chatID int64
	other  int64
	userID int64
	now    time.Time
}

func newEnv(t *testing.T) env {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "murmur.db"))
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	cs := chats.NewStore(d)
	a, err := cs.Create(ctx, 10, "")
	require.NoError(t, err)
	b, err := cs.Create(ctx, 20, "")
	require.NoError(t, err)
	u, err := cs.EnsureUser(ctx, chats.User{PubID: 42, Username: "alice"})
	require.NoError(t, err)

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return env{
		deps: Deps{
			History: history.NewStore(d, history.WithClock(func() time.Time { return now })),
			Memory:  memory.NewStore(d, nil),
			Fetcher: fakeFetcher{page: fetch.Page{Title: "T", Text: "body"}},
		},
		chatID: a.ID,
		other:  b.ID,
		userID: u.ID,
		now:    now,
	}
}

func find(t *testing.T, ts []agent.Tool, name string) agent.Tool {
	t.Helper()
	r := agent.NewRegistry(ts...)
	tool, ok := r.Resolve(name)
	require.True(t, ok, "tool %s missing", name)
	return tool
}

func names(ts []agent.Tool) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Name())
	}
	return out
}

func TestForChatToolSet(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, []string{
		"get_day_messages",
		"get_week_messages",
		"get_last_messages",
		"get_browser_content",
		"read_chat_memory",
		"save_chat_memory_entry",
		"delete_chat_memory_entry",
	}, names(ForChat(e.deps, e.chatID)))

	e.deps.Search = &fakeSearcher{}
	assert.Contains(t, names(ForChat(e.deps, e.chatID)), "web_search")
}

func TestMessageTools(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.deps.History.Track(ctx, e.chatID, e.userID, "hello"))
	ts := ForChat(e.deps, e.chatID)

	out, err := find(t, ts, "get_day_messages").Execute(ctx, "{}")
	require.NoError(t, err)
	var recs []agent.HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, int64(42), recs[0].UserID)
	assert.Equal(t, "hello", recs[0].Message)

	out, err = find(t, ForChat(e.deps, e.other), "get_week_messages").Execute(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = find(t, ts, "get_last_messages").Execute(ctx, `{"count":5}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"message":"hello"`)

	_, err = find(t, ts, "get_last_messages").Execute(ctx, `{"count":500}`)
	var argErr *agent.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestMemoryTools(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ts := ForChat(e.deps, e.chatID)

	out, err := find(t, ts, "save_chat_memory_entry").Execute(ctx, `{"memory":"likes tea"}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	out, err = find(t, ts, "read_chat_memory").Execute(ctx, `{}`)
	require.NoError(t, err)
	var entries []memory.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "likes tea", entries[0].Memory)

	// Another chat's delete tool cannot touch the entry.
	del := find(t, ForChat(e.deps, e.other), "delete_chat_memory_entry")
	out, err = del.Execute(ctx, `{"entry_id":`+jsonInt(entries[0].ID)+`}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	left, err := e.deps.Memory.Read(ctx, e.chatID)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	out, err = find(t, ts, "delete_chat_memory_entry").Execute(ctx, `{"entry_id":`+jsonInt(entries[0].ID)+`}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	left, err = e.deps.Memory.Read(ctx, e.chatID)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = find(t, ts, "save_chat_memory_entry").Execute(ctx, `{"text":"x"}`)
	assert.Error(t, err)
}

func TestBrowserContent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tool := find(t, Web(e.deps), "get_browser_content")

	out, err := tool.Execute(ctx, `{"url":"https://example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "Title: T\n\nbody", out)

	e.deps.Fetcher = fakeFetcher{err: errors.New("boom")}
	_, err = find(t, Web(e.deps), "get_browser_content").Execute(ctx, `{"url":"https://example.com"}`)
	assert.EqualError(t, err, "boom")
}

func TestWebSearch(t *testing.T) {
	ctx := context.Background()
	s := &fakeSearcher{results: []SearchResult{
		{Title: "Go", URL: "https://go.dev", Description: "The Go language"},
		{Title: "Tour", URL: "https://go.dev/tour", Description: "A tour"},
	}}
	tool := find(t, Web(Deps{Search: s}), "web_search")

	out, err := tool.Execute(ctx, `{"query":"golang","count":0}`)
	require.NoError(t, err)
	assert.Equal(t, defaultSearchCount, s.count)
	assert.Equal(t, 2, strings.Count(out, "https://go.dev"))
	assert.Contains(t, out, "\n---\n")

	s.results = nil
	out, err = tool.Execute(ctx, `{"query":"nothing","count":3}`)
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
	assert.Equal(t, 3, s.count)
}

func TestTruncate(t *testing.T) {
	short := "abc"
	assert.Equal(t, short, truncate(short))
	long := strings.Repeat("é", maxOutputRunes+5)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
	assert.Equal(t, maxOutputRunes, strings.Count(got, "é"))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()

	deps, closeFn, err := FromConfig(cfg)
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, deps.Fetcher)
	assert.Nil(t, deps.Search)
	assert.Nil(t, deps.History)

	assert.Equal(t, []string{"get_browser_content"}, names(Web(deps)))
}
