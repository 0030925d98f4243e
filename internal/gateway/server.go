package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"murmur/internal/agent"
	"murmur/internal/channels"
	"murmur/internal/chats"
	"murmur/internal/memory"
)

const shutdownTimeout = 10 * time.Second

// Directory exposes stored chats to API clients.
type Directory interface {
	ListChats(ctx context.Context) ([]chats.Chat, error)
	ChatMemory(ctx context.Context, chatID int64) ([]memory.Entry, error)
}

type Server struct {
	runner agent.Runner
	dir    Directory
	token  string
	mux    *http.ServeMux
}

// NewServer wires the API routes and each channel's routes. A non-empty
// token is required as a bearer token on /v1 routes.
func NewServer(runner agent.Runner, dir Directory, token string, chs ...channels.Channel) *Server {
	s := &Server{
		runner: runner,
		dir:    dir,
		token:  token,
		mux:    http.NewServeMux(),
	}
	s.routes()
	for _, ch := range chs {
		ch.RegisterRoutes(s.mux)
	}
	return s
}

func (s *Server) routes() {
	s.mux.Handle("POST /v1/chat", s.auth(http.HandlerFunc(s.handleChat)))
	s.mux.Handle("GET /v1/chats", s.auth(http.HandlerFunc(s.handleListChats)))
	s.mux.Handle("GET /v1/chats/{id}/memory", s.auth(http.HandlerFunc(s.handleChatMemory)))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(withRequestID(s.mux), "gateway")
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(agent.ContextWithRunID(r.Context(), id)))
		slog.Debug("gateway: request", "method", r.Method, "path", r.URL.Path, "request_id", id, "duration", time.Since(start))
	})
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("gateway: listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
