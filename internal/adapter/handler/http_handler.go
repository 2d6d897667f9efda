package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/core/service"
	"github.com/tdnguyen/library-desk/internal/port"
)

// HTTPHandler exposes the chat endpoint and the session read API. A
// nil cache disables the duplicate-request guard.
type HTTPHandler struct {
	chat  *service.ChatService
	conv  port.ConversationRepository
	cache port.CacheRepository
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(chat *service.ChatService, conv port.ConversationRepository, cache port.CacheRepository) *HTTPHandler {
	return &HTTPHandler{chat: chat, conv: conv, cache: cache}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/sessions/{session_id}/messages", h.ListMessages)
	mux.HandleFunc("GET /api/sessions/{session_id}/tool-calls", h.ListToolCalls)
	mux.HandleFunc("POST /api/chat", h.Chat)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"session_id": uuid.New().String()})
}

func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.conv.ListSessions(r.Context())
	if err != nil {
		log.Printf("list sessions: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *HTTPHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	messages, err := h.conv.ListMessages(r.Context(), sessionID)
	if err != nil {
		log.Printf("list messages: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *HTTPHandler) ListToolCalls(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	calls, err := h.conv.ListToolCalls(r.Context(), sessionID)
	if err != nil {
		log.Printf("list tool calls: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if calls == nil {
		calls = []domain.ToolCall{}
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *HTTPHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if h.cache != nil && req.RequestID != "" {
		ok, err := h.cache.SetIdempotency(r.Context(), "chat:req:"+req.RequestID)
		if err != nil {
			log.Printf("idempotency check: %v", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "duplicate request"})
			return
		}
	}

	reply, err := h.chat.Turn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrSessionRequired) || errors.Is(err, service.ErrMessageRequired) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		log.Printf("chat turn: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
