package tools

import (
	"fmt"
	"log/slog"

	"murmur/internal/config"
	"murmur/internal/fetch"
)

// FromConfig prepares the web tool dependencies described by cfg. History
// and Memory are left for the caller. The returned func releases the
// headless browser, if one was started.
func FromConfig(cfg *config.Config) (Deps, func(), error) {
	var deps Deps
	closeFn := func() {}

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Browser.Timeout.Duration),
		fetch.WithMaxChars(cfg.Browser.MaxChars),
	}
	if cfg.Browser.Render {
		browser := fetch.NewBrowser(cfg.Browser.Timeout.Duration)
		opts = append(opts, fetch.WithRenderer(browser))
		closeFn = func() {
			if err := browser.Close(); err != nil {
				slog.Warn("closing browser", "error", err)
			}
		}
	}
	deps.Fetcher = fetch.New(opts...)

	if cfg.Services.Brave.APIKey == "" {
		slog.Info("web search disabled: no brave api key")
		return deps, closeFn, nil
	}
	brave, err := NewBrave(cfg.Services.Brave.APIKey)
	if err != nil {
		closeFn()
		return Deps{}, nil, fmt.Errorf("creating brave client: %w", err)
	}
	deps.Search = brave
	return deps, closeFn, nil
}
