package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "murmur.db"))
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, d.Migrate())
}

func TestUsersAndChats(t *testing.T) {
	ctx := context.Background()
	q := New(openTestDB(t).Conn())

	_, err := q.GetUserByPubID(ctx, 7)
	require.ErrorIs(t, err, sql.ErrNoRows)

	u, err := q.InsertUser(ctx, InsertUserParams{PubID: 7, Username: sql.NullString{String: "alice", Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.PubID)
	assert.Equal(t, "alice", u.Username.String)

	again, err := q.InsertUser(ctx, InsertUserParams{PubID: 7, Username: sql.NullString{String: "alice2", Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "alice2", again.Username.String)

	c, err := q.InsertChat(ctx, InsertChatParams{PubID: -100, Title: sql.NullString{String: "group", Valid: true}})
	require.NoError(t, err)
	assert.False(t, c.Approved.Valid)

	n, err := q.SetChatApproved(ctx, SetChatApprovedParams{PubID: -100, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := q.GetChatByPubID(ctx, -100)
	require.NoError(t, err)
	assert.True(t, got.Approved.Valid)
	assert.True(t, got.Approved.Bool)

	n, err = q.SetChatApproved(ctx, SetChatApprovedParams{PubID: 999, Approved: true})
	require.NoError(t, err)
	assert.Zero(t, n)

	chats, err := q.ListChats(ctx)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	q := New(openTestDB(t).Conn())

	u, err := q.InsertUser(ctx, InsertUserParams{PubID: 1})
	require.NoError(t, err)
	c, err := q.InsertChat(ctx, InsertChatParams{PubID: 1})
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		require.NoError(t, q.InsertMessage(ctx, InsertMessageParams{
			ChatID:    c.ID,
			UserID:    u.ID,
			Message:   text,
			CreatedAt: FormatTime(base.Add(time.Duration(i) * time.Hour)),
		}))
	}

	last, err := q.GetLastMessages(ctx, GetLastMessagesParams{ChatID: c.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "three", last[0].Message)
	assert.Equal(t, "two", last[1].Message)
	assert.Equal(t, int64(1), last[0].UserPubID)

	since, err := q.GetMessagesSince(ctx, GetMessagesSinceParams{ChatID: c.ID, Since: FormatTime(base.Add(time.Hour))})
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "three", since[0].Message)

	ts, err := ParseTime(since[1].CreatedAt)
	require.NoError(t, err)
	assert.True(t, ts.Equal(base.Add(time.Hour)))
}

func TestChatMemoryScopedDelete(t *testing.T) {
	ctx := context.Background()
	q := New(openTestDB(t).Conn())

	a, err := q.InsertChat(ctx, InsertChatParams{PubID: 1})
	require.NoError(t, err)
	b, err := q.InsertChat(ctx, InsertChatParams{PubID: 2})
	require.NoError(t, err)

	id, err := q.InsertChatMemory(ctx, InsertChatMemoryParams{ChatID: a.ID, Memory: "likes tea"})
	require.NoError(t, err)

	n, err := q.DeleteChatMemory(ctx, DeleteChatMemoryParams{ChatID: b.ID, ID: id})
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := q.GetChatMemory(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "likes tea", entries[0].Memory)

	n, err = q.DeleteChatMemory(ctx, DeleteChatMemoryParams{ChatID: a.ID, ID: id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConfigUpsert(t *testing.T) {
	ctx := context.Background()
	q := New(openTestDB(t).Conn())

	_, err := q.GetConfig(ctx, "k")
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, q.UpsertConfig(ctx, UpsertConfigParams{Key: "k", Value: "1"}))
	require.NoError(t, q.UpsertConfig(ctx, UpsertConfigParams{Key: "k", Value: "2"}))

	v, err := q.GetConfig(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
