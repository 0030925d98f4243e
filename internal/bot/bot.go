// Package bot turns Telegram updates into answers: it gates chats behind
// owner approval, records every message and asks the model when the bot is
// addressed.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"murmur/internal/agent"
	"murmur/internal/channels"
	"murmur/internal/chats"
	"murmur/internal/history"
	"murmur/internal/memory"
	"murmur/internal/settings"
	"murmur/internal/tools"
)

const DefaultRecentCount = 20

// Messenger is the part of the Bot API the pipeline talks back through.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *channels.InlineKeyboardMarkup) (channels.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *channels.InlineKeyboardMarkup) error
}

type Answerer interface {
	Answer(ctx context.Context, content string, history []agent.HistoryRecord, tools []agent.Tool) (string, error)
}

type Deps struct {
	Messenger Messenger
	Answerer  Answerer
	Settings  *settings.Store
	Chats     *chats.Store
	// Tools also supplies the history and memory stores.
	Tools tools.Deps
}

type Options struct {
	// OwnerUsername is the Telegram username allowed to claim the bot.
	OwnerUsername string
	// RecentCount is the minimum number of past messages given as history.
	RecentCount int
}

type Bot struct {
	id    Identity
	deps  Deps
	owner string
	count int
}

func New(id Identity, deps Deps, opts Options) *Bot {
	if opts.RecentCount <= 0 {
		opts.RecentCount = DefaultRecentCount
	}
	return &Bot{
		id:    id,
		deps:  deps,
		owner: strings.TrimPrefix(opts.OwnerUsername, "@"),
		count: opts.RecentCount,
	}
}

func (b *Bot) Identity() Identity { return b.id }

func (b *Bot) history() *history.Store { return b.deps.Tools.History }
func (b *Bot) memory() *memory.Store   { return b.deps.Tools.Memory }

func (b *Bot) HandleUpdate(ctx context.Context, u channels.Update) {
	var err error
	switch {
	case u.CallbackQuery != nil:
		err = b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		err = b.handleMessage(ctx, u.Message)
	}
	if err != nil {
		slog.Error("bot: update failed", "update_id", u.UpdateID, "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *channels.Message) error {
	if m.From == nil || m.Chat.ID == 0 {
		return nil
	}
	log := slog.With("chat_id", m.Chat.ID, "user_id", m.From.ID)

	if ok, err := b.admit(ctx, m); err != nil || !ok {
		return err
	}

	chat, err := b.deps.Chats.ByPubID(ctx, m.Chat.ID)
	if errors.Is(err, chats.ErrNotFound) {
		return b.announce(ctx, m.Chat)
	}
	if err != nil {
		return err
	}
	if !chat.Approved() {
		log.Debug("bot: ignoring chat", "status", chat.Status)
		return nil
	}

	user, err := b.deps.Chats.EnsureUser(ctx, chats.User{
		PubID:     m.From.ID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
	})
	if err != nil {
		return err
	}

	if m.Text == "" {
		return nil
	}
	if err := b.history().Track(ctx, chat.ID, user.ID, m.Text); err != nil {
		return err
	}

	if !b.addressed(m) {
		return nil
	}
	return b.answer(ctx, chat, m)
}

// admit lets everything through once the owner chat is known. Before that
// only a private message from the owner gets in, and it claims the bot.
func (b *Bot) admit(ctx context.Context, m *channels.Message) (bool, error) {
	_, known, err := b.deps.Settings.OwnerChatID(ctx)
	if err != nil {
		return false, err
	}
	if known {
		return true, nil
	}
	if !m.Chat.Private() || b.owner == "" || !strings.EqualFold(m.From.Username, b.owner) {
		return false, nil
	}
	if err := b.deps.Settings.SetOwnerChatID(ctx, m.Chat.ID); err != nil {
		return false, err
	}
	slog.Info("bot: owner chat registered", "chat_id", m.Chat.ID, "username", m.From.Username)
	return true, nil
}

func (b *Bot) addressed(m *channels.Message) bool {
	if m.Chat.Private() {
		return true
	}
	return m.Chat.Group() && mentions(m, b.id.Username)
}

func (b *Bot) answer(ctx context.Context, chat chats.Chat, m *channels.Message) error {
	if err := b.deps.Messenger.SendChatAction(ctx, chat.PubID, channels.ActionTyping); err != nil {
		slog.Warn("bot: typing action failed", "chat_id", chat.PubID, "error", err)
	}

	user := &userContext{
		ID:        m.From.ID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
	}
	answer, err := b.generate(ctx, chat, m.Text, user)
	if err != nil {
		return err
	}
	if answer == "" {
		slog.Info("bot: no answer produced", "chat_id", chat.PubID)
		return nil
	}

	if err := b.history().Track(ctx, chat.ID, b.id.UserID, answer); err != nil {
		return err
	}
	return b.send(ctx, chat.PubID, answer)
}

// generate gathers history and memory for the chat and runs the model.
func (b *Bot) generate(ctx context.Context, chat chats.Chat, text string, user *userContext) (string, error) {
	recent, err := b.history().Recent(ctx, chat.ID, b.count)
	if err != nil {
		return "", err
	}
	notes, err := b.memory().Read(ctx, chat.ID)
	if err != nil {
		return "", err
	}
	content, err := composeContent(text, user, notes)
	if err != nil {
		return "", err
	}

	answer, err := b.deps.Answerer.Answer(ctx, content, history.Records(recent), tools.ForChat(b.deps.Tools, chat.ID))
	if err != nil {
		return "", fmt.Errorf("answering chat %d: %w", chat.PubID, err)
	}
	return answer, nil
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text) {
		if _, err := b.deps.Messenger.SendMessage(ctx, chatID, part, nil); err != nil {
			return fmt.Errorf("sending reply to %d: %w", chatID, err)
		}
	}
	return nil
}
