package bot

import (
	"context"
	"fmt"

	"murmur/internal/channels"
	"murmur/internal/chats"
)

// Identity is who the bot is on Telegram and in the users table. It is
// resolved once at startup and never changes afterwards.
type Identity struct {
	TelegramID int64
	Username   string
	UserID     int64 // local users row
}

type profileSource interface {
	GetMe(ctx context.Context) (channels.User, error)
}

func LoadIdentity(ctx context.Context, src profileSource, store *chats.Store) (Identity, error) {
	me, err := src.GetMe(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("fetching bot profile: %w", err)
	}
	u, err := store.EnsureUser(ctx, chats.User{
		PubID:     me.ID,
		Username:  me.Username,
		FirstName: me.FirstName,
		LastName:  me.LastName,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("storing bot user: %w", err)
	}
	return Identity{TelegramID: me.ID, Username: me.Username, UserID: u.ID}, nil
}
