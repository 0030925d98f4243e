package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/db"
)

func newStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "murmur.db"))
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { d.Close() })
	return NewStore(d), d
}

func TestGetMissing(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	s, d := newStore(t)

	require.NoError(t, s.Set(ctx, "a", "1"))
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// A second instance reads the persisted value, not the first one's cache.
	other := NewStore(d)
	v, err = other.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestCacheIsPerInstance(t *testing.T) {
	ctx := context.Background()
	s, d := newStore(t)
	require.NoError(t, s.Set(ctx, "a", "1"))

	other := NewStore(d)
	require.NoError(t, other.Set(ctx, "a", "2"))

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v, "cached value survives until this instance sets it")

	v, err = other.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestOwnerChatID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	_, ok, err := s.OwnerChatID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetOwnerChatID(ctx, 4242))
	id, ok, err := s.OwnerChatID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4242), id)

	require.NoError(t, s.Set(ctx, KeyOwnerChatID, "garbage"))
	_, _, err = s.OwnerChatID(ctx)
	assert.Error(t, err)
}
