package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dzhealth/clinic-assistant/internal/dialog"
	"github.com/dzhealth/clinic-assistant/internal/session"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

// ConversationHandler wires HTTP requests to the dialog engine.
type ConversationHandler struct {
	engine *dialog.Engine
	store  session.Store
	logger *logging.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(engine *dialog.Engine, store session.Store, logger *logging.Logger) *ConversationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationHandler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

// MessageRequest is the body of POST /v1/conversations/message.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SummaryRequest is the body of POST /v1/conversations/{sessionID}/summary.
type SummaryRequest struct {
	Service      string    `json:"service,omitempty"`
	SlotStart    time.Time `json:"slot_start,omitzero"`
	SlotEnd      time.Time `json:"slot_end,omitzero"`
	Practitioner string    `json:"practitioner,omitempty"`
}

// Message handles POST /v1/conversations/message.
func (h *ConversationHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	resp := h.engine.ProcessMessage(r.Context(), req.SessionID, req.Message)
	h.writeJSON(w, http.StatusOK, resp)
}

// Summary handles POST /v1/conversations/{sessionID}/summary, the
// post-booking trigger for the recap email.
func (h *ConversationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode summary request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp := h.engine.SendEmailSummary(r.Context(), sessionID, dialog.SummaryRequest{
		Service:      req.Service,
		SlotStart:    req.SlotStart,
		SlotEnd:      req.SlotEnd,
		Practitioner: req.Practitioner,
	})
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteSession handles DELETE /v1/sessions/{sessionID}.
func (h *ConversationHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}
	if err := h.engine.Reset(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to delete session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz and reports the live session count.
func (h *ConversationHandler) Health(w http.ResponseWriter, r *http.Request) {
	count := -1
	if h.store != nil {
		if c, err := h.store.Count(r.Context()); err == nil {
			count = c
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": count,
	})
}

func (h *ConversationHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
