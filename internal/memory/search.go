package memory

import (
	"context"
	"fmt"
	"sort"

	"murmur/internal/embedding"
)

const defaultSearchLimit = 5

type SearchResult struct {
	Entry
	Score float32 `json:"score"`
}

// Search ranks the chat's notes by cosine similarity to query. Notes saved
// without an embedding are skipped.
func (s *Store) Search(ctx context.Context, chatID int64, query string, limit int) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, nil
	}

	entries, err := s.Read(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, e := range entries {
		if e.embedding == nil {
			continue
		}
		score := embedding.CosineSimilarity(vecs[0], e.embedding)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Entry: e, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
