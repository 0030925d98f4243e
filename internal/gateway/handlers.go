package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"murmur/internal/agent"
	"murmur/internal/chats"
	"murmur/internal/memory"
)

type chatRequest struct {
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
	// User optionally says who is asking.
	User *agent.Caller `json:"user,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID == 0 || req.Message == "" {
		writeError(w, http.StatusBadRequest, "chat_id and message are required")
		return
	}

	ctx := r.Context()
	if req.User != nil {
		ctx = agent.ContextWithCaller(ctx, *req.User)
	}

	sse := NewSSEWriter(w)
	err := s.runner.Run(ctx, strconv.FormatInt(req.ChatID, 10), req.Message, func(ev agent.Event) {
		if err := sse.Send(string(ev.Type), ev.Data); err != nil {
			slog.Debug("gateway: sse write failed", "error", err)
		}
	})
	if err != nil {
		slog.Warn("gateway: chat failed", "chat_id", req.ChatID, "error", err)
		_ = sse.Send(string(agent.EventError), map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	list, err := s.dir.ListChats(r.Context())
	if err != nil {
		slog.Error("gateway: listing chats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []chats.Chat{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleChatMemory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	entries, err := s.dir.ChatMemory(r.Context(), id)
	if errors.Is(err, chats.ErrNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		slog.Error("gateway: reading chat memory", "chat_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []memory.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
