package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"murmur/internal/db"
)

// KeyOwnerChatID holds the private chat id of the bot owner once they have
// written to the bot for the first time.
const KeyOwnerChatID = "TELEGRAM_BOT_OWNER_CHAT_ID"

var ErrNotFound = errors.New("setting not found")

// Store is a key/value table with a read-through cache scoped to the instance.
type Store struct {
	q *db.Queries

	mu    sync.RWMutex
	cache map[string]string
}

func NewStore(database *db.DB) *Store {
	return &Store{
		q:     db.New(database.Conn()),
		cache: make(map[string]string),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := s.q.GetConfig(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.q.UpsertConfig(ctx, db.UpsertConfigParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

// OwnerChatID returns the stored owner chat id. ok is false until the owner
// has been bootstrapped.
func (s *Store) OwnerChatID(ctx context.Context) (id int64, ok bool, err error) {
	v, err := s.Get(ctx, KeyOwnerChatID)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err = strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse owner chat id %q: %w", v, err)
	}
	return id, true, nil
}

func (s *Store) SetOwnerChatID(ctx context.Context, id int64) error {
	return s.Set(ctx, KeyOwnerChatID, strconv.FormatInt(id, 10))
}
