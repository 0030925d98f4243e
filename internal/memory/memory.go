package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"murmur/internal/db"
	"murmur/internal/embedding"
)

// Entry is one free-text note the model keeps for a chat.
type Entry struct {
	ID        int64  `json:"id"`
	Memory    string `json:"memory"`
	CreatedAt string `json:"created_at"`

	embedding []float32
}

// Store keeps per-chat notes. Notes are embedded on save when an embedder
// is configured, which enables Search.
type Store struct {
	q        *db.Queries
	embedder embedding.Provider // nil = no embeddings
}

func NewStore(database *db.DB, embedder embedding.Provider) *Store {
	return &Store{q: db.New(database.Conn()), embedder: embedder}
}

// Searchable reports whether Search can be used.
func (s *Store) Searchable() bool { return s.embedder != nil }

// Read returns every note of the chat in insertion order.
func (s *Store) Read(ctx context.Context, chatID int64) ([]Entry, error) {
	rows, err := s.q.GetChatMemory(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("read chat memory: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{ID: r.ID, Memory: r.Memory, CreatedAt: r.CreatedAt}
		if len(r.Embedding) > 0 {
			e.embedding = embedding.Decode(r.Embedding)
		}
		out = append(out, e)
	}
	return out, nil
}

// Save appends a note and returns its id. A failed embedding is logged and
// the note is stored without one.
func (s *Store) Save(ctx context.Context, chatID int64, text string) (int64, error) {
	var emb []byte
	if s.embedder != nil {
		vecs, err := s.embedder.Embed(ctx, []string{text})
		switch {
		case err != nil:
			slog.Warn("embedding chat memory failed", "chat_id", chatID, "error", err)
		case len(vecs) > 0:
			emb = embedding.Encode(vecs[0])
		}
	}

	id, err := s.q.InsertChatMemory(ctx, db.InsertChatMemoryParams{
		ChatID:    chatID,
		Memory:    text,
		Embedding: emb,
	})
	if err != nil {
		return 0, fmt.Errorf("save chat memory: %w", err)
	}
	slog.Debug("chat memory saved", "chat_id", chatID, "entry_id", id)
	return id, nil
}

// Delete removes a note of this chat. Ids belonging to another chat, or to
// no note at all, are ignored.
func (s *Store) Delete(ctx context.Context, chatID, id int64) error {
	n, err := s.q.DeleteChatMemory(ctx, db.DeleteChatMemoryParams{ChatID: chatID, ID: id})
	if err != nil {
		return fmt.Errorf("delete chat memory: %w", err)
	}
	if n == 0 {
		slog.Debug("chat memory delete matched nothing", "chat_id", chatID, "entry_id", id)
	}
	return nil
}

var ErrSearchUnavailable = errors.New("memory search requires an embedding provider")
