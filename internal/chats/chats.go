package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"murmur/internal/db"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("chat already exists")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Chat is a Telegram chat known to the bot. PubID is the Telegram chat id,
// ID the local row id that messages and memory reference.
type Chat struct {
	ID        int64  `json:"id"`
	PubID     int64  `json:"pub_id"`
	Title     string `json:"title,omitempty"`
	Status    Status `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (c Chat) Approved() bool { return c.Status == StatusApproved }

type User struct {
	ID        int64  `json:"id"`
	PubID     int64  `json:"pub_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Store struct {
	q *db.Queries
}

func NewStore(database *db.DB) *Store {
	return &Store{q: db.New(database.Conn())}
}

func (s *Store) ByPubID(ctx context.Context, pubID int64) (Chat, error) {
	row, err := s.q.GetChatByPubID(ctx, pubID)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("get chat %d: %w", pubID, err)
	}
	return chatFromRow(row), nil
}

// Create inserts a pending chat. If the chat already exists the stored row
// is returned together with ErrExists.
func (s *Store) Create(ctx context.Context, pubID int64, title string) (Chat, error) {
	row, err := s.q.InsertChat(ctx, db.InsertChatParams{
		PubID: pubID,
		Title: nullString(title),
	})
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.ByPubID(ctx, pubID)
		if err != nil {
			return Chat{}, err
		}
		return existing, ErrExists
	}
	if err != nil {
		return Chat{}, fmt.Errorf("create chat %d: %w", pubID, err)
	}
	slog.Info("chat created", "chat_id", pubID, "title", title)
	return chatFromRow(row), nil
}

func (s *Store) SetApproved(ctx context.Context, pubID int64, approved bool) error {
	n, err := s.q.SetChatApproved(ctx, db.SetChatApprovedParams{PubID: pubID, Approved: approved})
	if err != nil {
		return fmt.Errorf("set chat %d approval: %w", pubID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	slog.Info("chat approval changed", "chat_id", pubID, "approved", approved)
	return nil
}

func (s *Store) List(ctx context.Context) ([]Chat, error) {
	rows, err := s.q.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	out := make([]Chat, 0, len(rows))
	for _, r := range rows {
		out = append(out, chatFromRow(r))
	}
	return out, nil
}

func (s *Store) UserByPubID(ctx context.Context, pubID int64) (User, error) {
	row, err := s.q.GetUserByPubID(ctx, pubID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", pubID, err)
	}
	return userFromRow(row), nil
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	row, err := s.q.InsertUser(ctx, db.InsertUserParams{
		PubID:     u.PubID,
		Username:  nullString(u.Username),
		FirstName: nullString(u.FirstName),
		LastName:  nullString(u.LastName),
	})
	if err != nil {
		return User{}, fmt.Errorf("create user %d: %w", u.PubID, err)
	}
	return userFromRow(row), nil
}

// EnsureUser returns the stored user for u.PubID, creating it when absent.
// Existing rows are returned as they are.
func (s *Store) EnsureUser(ctx context.Context, u User) (User, error) {
	existing, err := s.UserByPubID(ctx, u.PubID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.CreateUser(ctx, u)
}

func chatFromRow(r db.TelegramChat) Chat {
	c := Chat{
		ID:        r.ID,
		PubID:     r.PubID,
		Title:     r.Title.String,
		Status:    StatusPending,
		CreatedAt: r.CreatedAt,
	}
	if r.Approved.Valid {
		if r.Approved.Bool {
			c.Status = StatusApproved
		} else {
			c.Status = StatusRejected
		}
	}
	return c
}

func userFromRow(r db.TelegramUser) User {
	return User{
		ID:        r.ID,
		PubID:     r.PubID,
		Username:  r.Username.String,
		FirstName: r.FirstName.String,
		LastName:  r.LastName.String,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
