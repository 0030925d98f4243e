// Package fetch downloads web pages and reduces them to readable text for
// the model.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxChars = 20000
	maxBodyBytes    = 5 << 20
)

// Page is the cleaned content of one URL.
type Page struct {
	URL       string
	Title     string
	Text      string
	Truncated bool
}

// String renders the page the way it is handed to the model.
func (p Page) String() string {
	var b strings.Builder
	if p.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(p.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(p.Text)
	if p.Truncated {
		b.WriteString("\n\n[content truncated]")
	}
	return b.String()
}

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Fetcher struct {
	client   *http.Client
	renderer Renderer
	maxChars int
	// allowPrivate disables the public-address guard.
	allowPrivate bool
}

type Option func(*Fetcher)

// WithRenderer routes HTML pages through r. Plain HTTP is used when r fails.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) { f.renderer = r }
}

func WithMaxChars(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxChars = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxChars: DefaultMaxChars,
	}
	for _, o := range opts {
		o(f)
	}
	if !f.allowPrivate {
		f.client.Transport = otelhttp.NewTransport(guardedTransport())
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := normalize(rawURL)
	if err != nil {
		return Page{}, err
	}
	if !f.allowPrivate {
		if err := checkHost(ctx, u); err != nil {
			return Page{}, err
		}
	}

	if f.renderer != nil {
		doc, err := f.renderer.Render(ctx, u)
		if err == nil {
			title, text := Extract(doc)
			return f.page(u, title, text), nil
		}
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		slog.Warn("render failed, falling back to http", "url", u, "error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("User-Agent", "murmur/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", u, err)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "html"):
		title, text := Extract(string(body))
		return f.page(u, title, text), nil
	case utf8.Valid(body):
		return f.page(u, "", string(body)), nil
	default:
		return Page{URL: u, Text: fmt.Sprintf("binary content (%s), %d bytes", ct, len(body))}, nil
	}
}

func (f *Fetcher) page(u, title, text string) Page {
	p := Page{URL: u, Title: title, Text: text}
	if utf8.RuneCountInString(text) > f.maxChars {
		p.Text = truncate(text, f.maxChars)
		p.Truncated = true
	}
	return p
}

var errBadURL = errors.New("only http and https urls can be fetched")

func normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errBadURL
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.String(), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
