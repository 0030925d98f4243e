package channels

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPollTimeout = 30 * time.Second
	pollRetryDelay     = 3 * time.Second
	webhookSecretHdr   = "X-Telegram-Bot-Api-Secret-Token"
)

// UpdateHandler processes one update. It owns its error reporting.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u Update)
}

type TelegramOptions struct {
	PollTimeout time.Duration
	// WebhookURL switches delivery from long polling to a webhook.
	WebhookURL string
	// WebhookSecret is generated when empty in webhook mode.
	WebhookSecret string
}

// Telegram receives updates by long polling or webhook. Updates of one chat
// are handled one at a time in arrival order; different chats run
// concurrently.
type Telegram struct {
	client  *TelegramClient
	handler UpdateHandler
	opts    TelegramOptions

	mu     sync.Mutex
	queues map[int64][]queued
	wg     sync.WaitGroup
}

type queued struct {
	ctx context.Context
	u   Update
}

func NewTelegram(client *TelegramClient, handler UpdateHandler, opts TelegramOptions) *Telegram {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.WebhookURL != "" && opts.WebhookSecret == "" {
		opts.WebhookSecret = uuid.NewString()
		slog.Info("telegram: generated webhook secret")
	}
	return &Telegram{
		client:  client,
		handler: handler,
		opts:    opts,
		queues:  make(map[int64][]queued),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) RegisterRoutes(mux *http.ServeMux) {
	if t.opts.WebhookURL == "" {
		return
	}
	mux.HandleFunc("POST /webhook/telegram", t.handleWebhook)
}

func (t *Telegram) Start(ctx context.Context) error {
	defer t.wg.Wait()

	if t.opts.WebhookURL != "" {
		if err := t.client.SetWebhook(ctx, t.opts.WebhookURL, t.opts.WebhookSecret); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		slog.Info("telegram: webhook registered", "url", t.opts.WebhookURL)
		<-ctx.Done()
		return nil
	}

	if err := t.client.DeleteWebhook(ctx); err != nil {
		slog.Warn("telegram: failed to delete webhook", "error", err)
	}
	slog.Info("telegram: polling for updates", "timeout", t.opts.PollTimeout)
	return t.poll(ctx)
}

func (t *Telegram) poll(ctx context.Context) error {
	var offset int64
	for {
		updates, err := t.client.GetUpdates(ctx, offset, t.opts.PollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.Error("telegram: getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			t.dispatch(ctx, u)
		}
	}
}

// dispatch queues u behind earlier updates of the same chat, starting a
// worker for the chat when none is running.
func (t *Telegram) dispatch(ctx context.Context, u Update) {
	key := u.ChatID()
	t.mu.Lock()
	q, running := t.queues[key]
	t.queues[key] = append(q, queued{ctx: ctx, u: u})
	t.mu.Unlock()
	if running {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.drain(key)
	}()
}

func (t *Telegram) drain(key int64) {
	for {
		t.mu.Lock()
		q := t.queues[key]
		if len(q) == 0 {
			delete(t.queues, key)
			t.mu.Unlock()
			return
		}
		next := q[0]
		t.queues[key] = q[1:]
		t.mu.Unlock()

		t.handle(next.ctx, next.u)
	}
}

func (t *Telegram) handle(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("telegram: update handler panicked", "update_id", u.UpdateID, "panic", r)
		}
	}()
	t.handler.HandleUpdate(ctx, u)
}

func (t *Telegram) handleWebhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(webhookSecretHdr)
	if t.opts.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(t.opts.WebhookSecret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		slog.Error("telegram: failed to decode update", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Telegram redelivers until it gets a 200.
	t.dispatch(context.WithoutCancel(r.Context()), u)
	w.WriteHeader(http.StatusOK)
}
