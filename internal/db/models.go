package db

import "database/sql"

type TelegramUser struct {
	ID        int64
	PubID     int64
	Username  sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
	CreatedAt string
}

type TelegramChat struct {
	ID        int64
	PubID     int64
	Title     sql.NullString
	Approved  sql.NullBool
	CreatedAt string
}

// TelegramMessageWithUser is a message row joined with its author.
type TelegramMessageWithUser struct {
	ID           int64
	ChatID       int64
	UserID       int64
	Message      string
	CreatedAt    string
	UserPubID    int64
	UserUsername sql.NullString
}

type TelegramChatMemory struct {
	ID        int64
	ChatID    int64
	Memory    string
	Embedding []byte
	CreatedAt string
}

type EmbeddingCache struct {
	ContentHash string
	EmbedModel  string
	Embedding   []byte
	CreatedAt   string
}
