package embedding

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"

	"murmur/internal/db"
)

const defaultCacheSize = 10000

// Cached keeps vectors in sqlite keyed by model and text so repeated notes
// and queries are embedded once. Cache failures never fail an Embed call.
type Cached struct {
	inner Provider
	q     *db.Queries
	size  int
}

func NewCached(inner Provider, database *db.DB, size int) *Cached {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Cached{inner: inner, q: db.New(database.Conn()), size: size}
}

func (c *Cached) Model() string   { return c.inner.Model() }
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	for i, t := range texts {
		keys[i] = c.key(t)
		row, err := c.q.GetEmbeddingCache(ctx, keys[i])
		switch {
		case err == nil:
			out[i] = Decode(row.Embedding)
			continue
		case !errors.Is(err, sql.ErrNoRows):
			slog.Debug("embedding cache read failed", "error", err)
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.inner.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}

	for j, i := range missing {
		out[i] = vecs[j]
		if err := c.q.UpsertEmbeddingCache(ctx, db.UpsertEmbeddingCacheParams{
			ContentHash: keys[i],
			EmbedModel:  c.inner.Model(),
			Embedding:   Encode(vecs[j]),
		}); err != nil {
			slog.Debug("embedding cache write failed", "error", err)
		}
	}
	if err := c.q.PruneEmbeddingCache(ctx, int64(c.size)); err != nil {
		slog.Debug("embedding cache prune failed", "error", err)
	}
	return out, nil
}

func (c *Cached) key(text string) string {
	h := sha256.New()
	h.Write([]byte(c.inner.Model()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
