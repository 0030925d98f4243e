package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"murmur/internal/agent"
	"murmur/internal/chats"
	"murmur/internal/memory"
)

var ErrChatNotApproved = errors.New("chat is not approved")

// Run answers message for the chat whose Telegram id is sessionID without
// delivering anything to Telegram. Progress and the final answer go to emit.
// A caller stored in ctx is described to the model like a message sender.
func (b *Bot) Run(ctx context.Context, sessionID, message string, emit func(agent.Event)) error {
	chat, err := b.approvedChat(ctx, sessionID)
	if err != nil {
		return err
	}

	var user *userContext
	if c := agent.CallerFromContext(ctx); c != nil {
		user = &userContext{ID: c.ID, Username: c.Username, FirstName: c.FirstName, LastName: c.LastName}
	}

	ctx = agent.ContextWithEmit(ctx, emit)
	answer, err := b.generate(ctx, chat, message, user)
	if err != nil {
		return err
	}
	emit(agent.Event{Type: agent.EventDone, Data: map[string]string{"answer": answer}})
	return nil
}

func (b *Bot) approvedChat(ctx context.Context, sessionID string) (chats.Chat, error) {
	pubID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return chats.Chat{}, fmt.Errorf("chat id %q: %w", sessionID, err)
	}
	chat, err := b.deps.Chats.ByPubID(ctx, pubID)
	if err != nil {
		return chats.Chat{}, err
	}
	if !chat.Approved() {
		return chats.Chat{}, ErrChatNotApproved
	}
	return chat, nil
}

func (b *Bot) ListChats(ctx context.Context) ([]chats.Chat, error) {
	return b.deps.Chats.List(ctx)
}

// ChatMemory returns the notes of the chat with Telegram id pubID.
func (b *Bot) ChatMemory(ctx context.Context, pubID int64) ([]memory.Entry, error) {
	chat, err := b.deps.Chats.ByPubID(ctx, pubID)
	if err != nil {
		return nil, err
	}
	return b.memory().Read(ctx, chat.ID)
}
