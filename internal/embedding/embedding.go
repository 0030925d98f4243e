package embedding

import (
	"context"

	"murmur/internal/db"
)

// Provider turns texts into vectors, one per input, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// Options configure the provider built by New.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	CacheSize  int
}

// New returns an OpenAI embeddings provider behind the sqlite cache.
func New(opts Options, database *db.DB) Provider {
	return NewCached(NewOpenAI(opts.BaseURL, opts.APIKey, opts.Model, opts.Dimensions), database, opts.CacheSize)
}
