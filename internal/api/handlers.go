package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/novahq/nova/internal/app"
	"github.com/novahq/nova/internal/storage"
)

// ChatService runs one assistant turn.
type ChatService interface {
	Chat(ctx context.Context, req app.Request) (app.Response, error)
}

// HistoryStore is the persistence surface the CRUD endpoints need.
type HistoryStore interface {
	Append(ctx context.Context, email, conv string, msgs ...storage.Message) error
	Get(ctx context.Context, email, conv string) ([]storage.Message, error)
	Fetch(ctx context.Context, email string) (storage.History, error)
	List(ctx context.Context, email string) ([]string, error)
	Rename(ctx context.Context, email, oldName, newName string) error
	Delete(ctx context.Context, email, conv string) error
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers.
type Handler struct {
	Assistant ChatService
	Store     HistoryStore
	Log       *slog.Logger
}

func NewHandler(assistant ChatService, store HistoryStore, log *slog.Logger) *Handler {
	return &Handler{Assistant: assistant, Store: store, Log: log}
}

// Chat handles POST /chat. An empty message is the only 400; upstream
// trouble still produces a normal reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req app.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.Assistant.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message must not be empty")
			return
		}
		h.Log.Error("chat turn failed", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type convRequest struct {
	UserEmail        string `json:"user_email"`
	ConversationName string `json:"conversation_name"`
}

// GetChat handles POST /get_chat: one conversation's messages, or the
// whole history when conversation_name is omitted.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	var req convRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserEmail == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}

	if req.ConversationName == "" {
		history, err := h.Store.Fetch(r.Context(), req.UserEmail)
		if err != nil {
			h.Log.Error("fetch history failed", "err", err)
			writeError(w, http.StatusInternalServerError, "could not load history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})
		return
	}

	msgs, err := h.Store.Get(r.Context(), req.UserEmail, req.ConversationName)
	if err != nil {
		h.notFoundOrError(w, err, "could not load conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_name": req.ConversationName,
		"messages":          msgs,
	})
}

type appendRequest struct {
	UserEmail        string            `json:"user_email"`
	ConversationName string            `json:"conversation_name"`
	Messages         []storage.Message `json:"messages"`
}

// AppendChat handles POST /append_chat.
func (h *Handler) AppendChat(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.UserEmail == "" || req.ConversationName == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "user_email, conversation_name and messages are required")
		return
	}

	if err := h.Store.Append(r.Context(), req.UserEmail, req.ConversationName, req.Messages...); err != nil {
		h.Log.Error("append failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not append messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListChats handles GET /list_chats?user_email=...
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("user_email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}

	names, err := h.Store.List(r.Context(), email)
	if err != nil {
		h.Log.Error("list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": names})
}

type renameRequest struct {
	UserEmail string `json:"user_email"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
}

// RenameChat handles POST /rename_chat.
func (h *Handler) RenameChat(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.UserEmail == "" || req.OldName == "" || req.NewName == "" {
		writeError(w, http.StatusBadRequest, "user_email, old_name and new_name are required")
		return
	}

	if err := h.Store.Rename(r.Context(), req.UserEmail, req.OldName, req.NewName); err != nil {
		h.notFoundOrError(w, err, "could not rename conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteChat handles POST /delete_chat.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	var req convRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.UserEmail == "" || req.ConversationName == "" {
		writeError(w, http.StatusBadRequest, "user_email and conversation_name are required")
		return
	}

	if err := h.Store.Delete(r.Context(), req.UserEmail, req.ConversationName); err != nil {
		h.notFoundOrError(w, err, "could not delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health handles GET /health with a database ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"db":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, storage.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	h.Log.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
