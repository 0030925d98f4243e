package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"murmur/internal/agent"
	"murmur/internal/bot"
	"murmur/internal/channels"
	"murmur/internal/chats"
	"murmur/internal/config"
	"murmur/internal/db"
	"murmur/internal/embedding"
	gw "murmur/internal/gateway"
	"murmur/internal/history"
	"murmur/internal/llm"
	"murmur/internal/memory"
	"murmur/internal/settings"
	"murmur/internal/tools"
	"murmur/internal/trace"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var addr string

var Cmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the Telegram bot and the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr != "" {
			cfg.Gateway.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(ctx, cfg)
	},
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "override gateway listen address")
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTrace, err := trace.Init(ctx, cfg.Trace)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTrace(flushCtx); err != nil {
			slog.Warn("trace shutdown", "error", err)
		}
	}()

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	provider := llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	answerer := agent.NewAnswerer(provider, agent.WithMaxRounds(cfg.LLM.MaxRounds))

	// Embedding provider (optional).
	var embedder embedding.Provider
	if cfg.Memory.Embedding.Enabled {
		embedder = embedding.New(embedding.Options{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.Memory.Embedding.Model,
			Dimensions: cfg.Memory.Embedding.Dimensions,
			CacheSize:  cfg.Memory.Embedding.CacheSize,
		}, database)
		slog.Info("embedding provider enabled", "model", cfg.Memory.Embedding.Model, "dimensions", cfg.Memory.Embedding.Dimensions)
	}

	toolDeps, closeTools, err := tools.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer closeTools()
	toolDeps.History = history.NewStore(database)
	toolDeps.Memory = memory.NewStore(database, embedder)

	client := channels.NewTelegramClient(cfg.Telegram.Token)
	chatStore := chats.NewStore(database)
	id, err := bot.LoadIdentity(ctx, client, chatStore)
	if err != nil {
		return err
	}
	slog.Info("bot identity loaded", "username", id.Username, "telegram_id", id.TelegramID)

	b := bot.New(id, bot.Deps{
		Messenger: client,
		Answerer:  answerer,
		Settings:  settings.NewStore(database),
		Chats:     chatStore,
		Tools:     toolDeps,
	}, bot.Options{
		OwnerUsername: cfg.Telegram.OwnerUsername,
		RecentCount:   cfg.History.RecentCount,
	})

	tg := channels.NewTelegram(client, b, channels.TelegramOptions{
		PollTimeout:   cfg.Telegram.PollTimeout.Duration,
		WebhookURL:    cfg.Telegram.Webhook,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})
	srv := gw.NewServer(b, b, cfg.Gateway.Token, tg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := tg.Start(ctx); err != nil {
			return fmt.Errorf("%s channel: %w", tg.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Gateway.Addr)
	})

	slog.Info("starting gateway", "addr", cfg.Gateway.Addr, "webhook", cfg.Telegram.Webhook != "")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
