package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"murmur/internal/trace"
)

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Telegram TelegramConfig `toml:"telegram"`
	Gateway  GatewayConfig  `toml:"gateway"`
	DB       DBConfig       `toml:"db"`
	Browser  BrowserConfig  `toml:"browser"`
	Services ServicesConfig `toml:"services"`
	Memory   MemoryConfig   `toml:"memory"`
	Trace    trace.Config   `toml:"trace"`
	History  HistoryConfig  `toml:"history"`
}

type LLMConfig struct {
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	MaxRounds int    `toml:"max_rounds"`
}

type TelegramConfig struct {
	Token         string   `toml:"token"`
	OwnerUsername string   `toml:"owner_username"`
	PollTimeout   Duration `toml:"poll_timeout"`
	// Webhook is the public URL Telegram should post updates to. Empty
	// means long polling.
	Webhook       string `toml:"webhook"`
	WebhookSecret string `toml:"webhook_secret"`
}

type GatewayConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type BrowserConfig struct {
	Render   bool     `toml:"render"`
	Timeout  Duration `toml:"timeout"`
	MaxChars int      `toml:"max_chars"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

type MemoryConfig struct {
	Embedding EmbeddingConfig `toml:"embedding"`
}

type EmbeddingConfig struct {
	Enabled    bool   `toml:"enabled"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	CacheSize  int    `toml:"cache_size"`
}

type HistoryConfig struct {
	RecentCount int `toml:"recent_count"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			BaseURL:   "https://api.openai.com/v1",
			MaxRounds: 10,
		},
		Telegram: TelegramConfig{
			PollTimeout: Duration{30 * time.Second},
		},
		Gateway: GatewayConfig{
			Addr: "127.0.0.1:8484",
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Browser: BrowserConfig{
			Timeout:  Duration{30 * time.Second},
			MaxChars: 20000,
		},
		Memory: MemoryConfig{
			Embedding: EmbeddingConfig{
				Model:     "text-embedding-3-small",
				CacheSize: 10000,
			},
		},
		History: HistoryConfig{
			RecentCount: 20,
		},
	}
}

// Load reads path, or the default location when path is empty. A missing
// file is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// applyEnv fills secrets left empty in the file from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	for _, v := range []struct {
		dst *string
		key string
	}{
		{&c.Telegram.Token, "TELEGRAM_TOKEN"},
		{&c.Telegram.OwnerUsername, "TELEGRAM_BOT_OWNER_USERNAME"},
		{&c.LLM.APIKey, "OPENAI_API_KEY"},
		{&c.Services.Brave.APIKey, "BRAVE_API_KEY"},
	} {
		if *v.dst == "" {
			*v.dst = getenv(v.key)
		}
	}
}

// Validate reports settings the gateway cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token (or TELEGRAM_TOKEN) is required"))
	}
	if c.Telegram.OwnerUsername == "" {
		errs = append(errs, errors.New("telegram.owner_username (or TELEGRAM_BOT_OWNER_USERNAME) is required"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key (or OPENAI_API_KEY) is required"))
	}
	if c.Gateway.Token == "" && !loopback(c.Gateway.Addr) {
		errs = append(errs, fmt.Errorf("gateway.token is required when listening on %q", c.Gateway.Addr))
	}
	return errors.Join(errs...)
}

// loopback reports whether addr only accepts local connections. An empty
// host listens on every interface.
func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Encode renders c as TOML, for writing a starter config file.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "murmur", "config.toml")
}

func defaultDBPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, ".local", "share", "murmur", "murmur.db")
}
