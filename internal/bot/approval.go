package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"murmur/internal/channels"
	"murmur/internal/chats"
)

const (
	approvePrefix = "approve_chat_"
	rejectPrefix  = "reject_chat_"
)

// announce stores a chat seen for the first time as pending and asks the
// owner to decide on it.
func (b *Bot) announce(ctx context.Context, c channels.Chat) error {
	_, err := b.deps.Chats.Create(ctx, c.ID, chatTitle(c))
	if errors.Is(err, chats.ErrExists) {
		// Announced by a concurrent update.
		return nil
	}
	if err != nil {
		return err
	}

	owner, known, err := b.deps.Settings.OwnerChatID(ctx)
	if err != nil || !known {
		return err
	}

	id := strconv.FormatInt(c.ID, 10)
	keyboard := &channels.InlineKeyboardMarkup{InlineKeyboard: [][]channels.InlineKeyboardButton{{
		{Text: "Approve", CallbackData: approvePrefix + id},
		{Text: "Reject", CallbackData: rejectPrefix + id},
	}}}
	if _, err := b.deps.Messenger.SendMessage(ctx, owner, newChatNotice(c), keyboard); err != nil {
		return fmt.Errorf("notifying owner about chat %d: %w", c.ID, err)
	}
	return nil
}

func parseDecision(data string) (approve bool, chatID int64, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(data, approvePrefix):
		approve, rest = true, data[len(approvePrefix):]
	case strings.HasPrefix(data, rejectPrefix):
		rest = data[len(rejectPrefix):]
	default:
		return false, 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return false, 0, false
	}
	return approve, id, true
}

// handleCallback applies the owner's Approve/Reject button press.
func (b *Bot) handleCallback(ctx context.Context, q *channels.CallbackQuery) error {
	if q.Message == nil {
		return nil
	}
	approve, target, ok := parseDecision(q.Data)
	if !ok {
		slog.Warn("bot: unrecognized callback", "data", q.Data)
		return nil
	}
	defer func() {
		if err := b.deps.Messenger.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
			slog.Warn("bot: answering callback failed", "error", err)
		}
	}()

	verb, notice, done := "reject", "Your chat has been rejected :(", "Rejected!"
	if approve {
		verb, notice, done = "approve", "Your chat has been approved!", "Approved!"
	}

	from := q.Message.Chat.ID
	owner, known, err := b.deps.Settings.OwnerChatID(ctx)
	if err != nil {
		return err
	}
	if !known || owner != from {
		_, err := b.deps.Messenger.SendMessage(ctx, from, fmt.Sprintf("You are not authorized to %s chats.", verb), nil)
		return err
	}

	if err := b.deps.Chats.SetApproved(ctx, target, approve); err != nil {
		return fmt.Errorf("%s chat %d: %w", verb, target, err)
	}
	if _, err := b.deps.Messenger.SendMessage(ctx, target, notice, nil); err != nil {
		slog.Warn("bot: notifying chat of decision failed", "chat_id", target, "error", err)
	}
	if err := b.deps.Messenger.EditMessageReplyMarkup(ctx, from, q.Message.MessageID, nil); err != nil {
		slog.Warn("bot: clearing approval buttons failed", "error", err)
	}
	_, err = b.deps.Messenger.SendMessage(ctx, from, done, nil)
	return err
}
