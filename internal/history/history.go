package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"murmur/internal/agent"
	"murmur/internal/db"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Entry is a stored chat message joined with its author.
type Entry struct {
	ID        int64
	UserID    int64 // Telegram user id
	Username  string
	Message   string
	CreatedAt time.Time
}

type Store struct {
	q   *db.Queries
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(database *db.DB, opts ...Option) *Store {
	s := &Store{q: db.New(database.Conn()), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Track records one message. chatID and userID are local row ids.
func (s *Store) Track(ctx context.Context, chatID, userID int64, message string) error {
	err := s.q.InsertMessage(ctx, db.InsertMessageParams{
		ChatID:    chatID,
		UserID:    userID,
		Message:   message,
		CreatedAt: db.FormatTime(s.now()),
	})
	if err != nil {
		return fmt.Errorf("track message: %w", err)
	}
	return nil
}

// Last returns up to n messages, newest first.
func (s *Store) Last(ctx context.Context, chatID int64, n int) ([]Entry, error) {
	rows, err := s.q.GetLastMessages(ctx, db.GetLastMessagesParams{ChatID: chatID, Limit: int64(n)})
	if err != nil {
		return nil, fmt.Errorf("last messages: %w", err)
	}
	return entries(rows)
}

// Since returns messages not older than d, newest first.
func (s *Store) Since(ctx context.Context, chatID int64, d time.Duration) ([]Entry, error) {
	rows, err := s.q.GetMessagesSince(ctx, db.GetMessagesSinceParams{
		ChatID: chatID,
		Since:  db.FormatTime(s.now().Add(-d)),
	})
	if err != nil {
		return nil, fmt.Errorf("messages since: %w", err)
	}
	return entries(rows)
}

// Recent picks whichever is longer of the last day and the last n
// messages, returned oldest first.
func (s *Store) Recent(ctx context.Context, chatID int64, n int) ([]Entry, error) {
	day, err := s.Since(ctx, chatID, Day)
	if err != nil {
		return nil, err
	}
	last, err := s.Last(ctx, chatID, n)
	if err != nil {
		return nil, err
	}
	out := last
	if len(day) > len(last) {
		out = day
	}
	slices.Reverse(out)
	return out, nil
}

// Records converts entries into the form handed to the model, keeping order.
func Records(es []Entry) []agent.HistoryRecord {
	out := make([]agent.HistoryRecord, 0, len(es))
	for _, e := range es {
		out = append(out, agent.HistoryRecord{
			UserID:    e.UserID,
			Username:  e.Username,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func entries(rows []db.TelegramMessageWithUser) ([]Entry, error) {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		ts, err := db.ParseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", r.ID, err)
		}
		out = append(out, Entry{
			ID:        r.ID,
			UserID:    r.UserPubID,
			Username:  r.UserUsername.String,
			Message:   r.Message,
			CreatedAt: ts,
		})
	}
	return out, nil
}
