package db

import (
	"context"
	"database/sql"
)

const getUserByPubID = `
SELECT id, pub_id, username, first_name, last_name, created_at
FROM telegram_users
WHERE pub_id = ?
LIMIT 1
`

func (q *Queries) GetUserByPubID(ctx context.Context, pubID int64) (TelegramUser, error) {
	row := q.db.QueryRowContext(ctx, getUserByPubID, pubID)
	var i TelegramUser
	err := row.Scan(&i.ID, &i.PubID, &i.Username, &i.FirstName, &i.LastName, &i.CreatedAt)
	return i, err
}

const insertUser = `
INSERT INTO telegram_users (pub_id, username, first_name, last_name)
VALUES (?, ?, ?, ?)
ON CONFLICT (pub_id) DO UPDATE SET
    username = excluded.username,
    first_name = excluded.first_name,
    last_name = excluded.last_name
RETURNING id, pub_id, username, first_name, last_name, created_at
`

type InsertUserParams struct {
	PubID     int64
	Username  sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
}

func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (TelegramUser, error) {
	row := q.db.QueryRowContext(ctx, insertUser, arg.PubID, arg.Username, arg.FirstName, arg.LastName)
	var i TelegramUser
	err := row.Scan(&i.ID, &i.PubID, &i.Username, &i.FirstName, &i.LastName, &i.CreatedAt)
	return i, err
}

const getChatByPubID = `
SELECT id, pub_id, title, approved, created_at
FROM telegram_chats
WHERE pub_id = ?
LIMIT 1
`

func (q *Queries) GetChatByPubID(ctx context.Context, pubID int64) (TelegramChat, error) {
	row := q.db.QueryRowContext(ctx, getChatByPubID, pubID)
	var i TelegramChat
	err := row.Scan(&i.ID, &i.PubID, &i.Title, &i.Approved, &i.CreatedAt)
	return i, err
}

const insertChat = `
INSERT INTO telegram_chats (pub_id, title)
VALUES (?, ?)
ON CONFLICT (pub_id) DO NOTHING
RETURNING id, pub_id, title, approved, created_at
`

// InsertChat returns sql.ErrNoRows when a chat with the same pub_id exists.
type InsertChatParams struct {
	PubID int64
	Title sql.NullString
}

func (q *Queries) InsertChat(ctx context.Context, arg InsertChatParams) (TelegramChat, error) {
	row := q.db.QueryRowContext(ctx, insertChat, arg.PubID, arg.Title)
	var i TelegramChat
	err := row.Scan(&i.ID, &i.PubID, &i.Title, &i.Approved, &i.CreatedAt)
	return i, err
}

const setChatApproved = `
UPDATE telegram_chats SET approved = ? WHERE pub_id = ?
`

type SetChatApprovedParams struct {
	Approved bool
	PubID    int64
}

func (q *Queries) SetChatApproved(ctx context.Context, arg SetChatApprovedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, setChatApproved, arg.Approved, arg.PubID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listChats = `
SELECT id, pub_id, title, approved, created_at
FROM telegram_chats
ORDER BY id
`

func (q *Queries) ListChats(ctx context.Context) ([]TelegramChat, error) {
	rows, err := q.db.QueryContext(ctx, listChats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TelegramChat
	for rows.Next() {
		var i TelegramChat
		if err := rows.Scan(&i.ID, &i.PubID, &i.Title, &i.Approved, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertMessage = `
INSERT INTO telegram_messages (chat_id, user_id, message, created_at)
VALUES (?, ?, ?, ?)
`

type InsertMessageParams struct {
	ChatID    int64
	UserID    int64
	Message   string
	CreatedAt string
}

func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	_, err := q.db.ExecContext(ctx, insertMessage, arg.ChatID, arg.UserID, arg.Message, arg.CreatedAt)
	return err
}

const getLastMessages = `
SELECT m.id, m.chat_id, m.user_id, m.message, m.created_at, u.pub_id, u.username
FROM telegram_messages m
JOIN telegram_users u ON u.id = m.user_id
WHERE m.chat_id = ?
ORDER BY m.created_at DESC, m.id DESC
LIMIT ?
`

type GetLastMessagesParams struct {
	ChatID int64
	Limit  int64
}

func (q *Queries) GetLastMessages(ctx context.Context, arg GetLastMessagesParams) ([]TelegramMessageWithUser, error) {
	return q.queryMessages(ctx, getLastMessages, arg.ChatID, arg.Limit)
}

const getMessagesSince = `
SELECT m.id, m.chat_id, m.user_id, m.message, m.created_at, u.pub_id, u.username
FROM telegram_messages m
JOIN telegram_users u ON u.id = m.user_id
WHERE m.chat_id = ? AND m.created_at >= ?
ORDER BY m.created_at DESC, m.id DESC
`

type GetMessagesSinceParams struct {
	ChatID int64
	Since  string
}

func (q *Queries) GetMessagesSince(ctx context.Context, arg GetMessagesSinceParams) ([]TelegramMessageWithUser, error) {
	return q.queryMessages(ctx, getMessagesSince, arg.ChatID, arg.Since)
}

func (q *Queries) queryMessages(ctx context.Context, query string, args ...any) ([]TelegramMessageWithUser, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TelegramMessageWithUser
	for rows.Next() {
		var i TelegramMessageWithUser
		if err := rows.Scan(&i.ID, &i.ChatID, &i.UserID, &i.Message, &i.CreatedAt, &i.UserPubID, &i.UserUsername); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getChatMemory = `
SELECT id, chat_id, memory, embedding, created_at
FROM telegram_chat_memory
WHERE chat_id = ?
ORDER BY id
`

func (q *Queries) GetChatMemory(ctx context.Context, chatID int64) ([]TelegramChatMemory, error) {
	rows, err := q.db.QueryContext(ctx, getChatMemory, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TelegramChatMemory
	for rows.Next() {
		var i TelegramChatMemory
		if err := rows.Scan(&i.ID, &i.ChatID, &i.Memory, &i.Embedding, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertChatMemory = `
INSERT INTO telegram_chat_memory (chat_id, memory, embedding)
VALUES (?, ?, ?)
RETURNING id
`

type InsertChatMemoryParams struct {
	ChatID    int64
	Memory    string
	Embedding []byte
}

func (q *Queries) InsertChatMemory(ctx context.Context, arg InsertChatMemoryParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertChatMemory, arg.ChatID, arg.Memory, arg.Embedding)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteChatMemory = `
DELETE FROM telegram_chat_memory WHERE chat_id = ? AND id = ?
`

type DeleteChatMemoryParams struct {
	ChatID int64
	ID     int64
}

func (q *Queries) DeleteChatMemory(ctx context.Context, arg DeleteChatMemoryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteChatMemory, arg.ChatID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getConfig = `
SELECT value FROM config WHERE key = ? LIMIT 1
`

func (q *Queries) GetConfig(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getConfig, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const upsertConfig = `
INSERT INTO config (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value
`

type UpsertConfigParams struct {
	Key   string
	Value string
}

func (q *Queries) UpsertConfig(ctx context.Context, arg UpsertConfigParams) error {
	_, err := q.db.ExecContext(ctx, upsertConfig, arg.Key, arg.Value)
	return err
}

const getEmbeddingCache = `
SELECT content_hash, embed_model, embedding, created_at
FROM embedding_cache
WHERE content_hash = ?
`

func (q *Queries) GetEmbeddingCache(ctx context.Context, contentHash string) (EmbeddingCache, error) {
	row := q.db.QueryRowContext(ctx, getEmbeddingCache, contentHash)
	var i EmbeddingCache
	err := row.Scan(&i.ContentHash, &i.EmbedModel, &i.Embedding, &i.CreatedAt)
	return i, err
}

const upsertEmbeddingCache = `
INSERT INTO embedding_cache (content_hash, embed_model, embedding)
VALUES (?, ?, ?)
ON CONFLICT (content_hash) DO UPDATE SET
    embed_model = excluded.embed_model,
    embedding = excluded.embedding,
    created_at = CURRENT_TIMESTAMP
`

type UpsertEmbeddingCacheParams struct {
	ContentHash string
	EmbedModel  string
	Embedding   []byte
}

func (q *Queries) UpsertEmbeddingCache(ctx context.Context, arg UpsertEmbeddingCacheParams) error {
	_, err := q.db.ExecContext(ctx, upsertEmbeddingCache, arg.ContentHash, arg.EmbedModel, arg.Embedding)
	return err
}

const pruneEmbeddingCache = `
DELETE FROM embedding_cache
WHERE content_hash NOT IN (
    SELECT content_hash FROM embedding_cache ORDER BY created_at DESC LIMIT ?
)
`

func (q *Queries) PruneEmbeddingCache(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneEmbeddingCache, keep)
	return err
}
