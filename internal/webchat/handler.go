package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/dzhealth/clinic-assistant/internal/dialog"
	"github.com/dzhealth/clinic-assistant/internal/transcript"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

// TranscriptReader loads past turns and conversation metadata for a
// session.
type TranscriptReader interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]transcript.TurnRecord, error)
	GetConversation(ctx context.Context, sessionID string) (*transcript.ConversationRecord, error)
}

// Handler serves the web chat widget protocol over WebSocket, with an
// HTTP history endpoint for reconnecting clients.
type Handler struct {
	engine     *dialog.Engine
	transcript TranscriptReader
	logger     *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string                     `json:"type"` // "session", "typing", "message", "pong", "error"
	Role      string                     `json:"role,omitempty"`
	Text      string                     `json:"text,omitempty"`
	Response  *dialog.StructuredResponse `json:"response,omitempty"`
	SessionID string                     `json:"session_id,omitempty"`
	Timestamp string                     `json:"timestamp,omitempty"`
	Messages  []HistoryMessage           `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// HistoryConversation summarizes the audit record of the session, for
// widgets restoring a prior chat.
type HistoryConversation struct {
	Stage     string `json:"stage,omitempty"`
	TurnCount int    `json:"turn_count"`
	HandedOff bool   `json:"handed_off"`
	Ended     bool   `json:"ended"`
}

// NewHandler creates a web chat handler. The transcript reader may be
// nil, in which case history requests return empty lists.
func NewHandler(engine *dialog.Engine, transcript TranscriptReader, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: engine is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, transcript: transcript, logger: logger}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "reset":
			if err := h.engine.Reset(r.Context(), sessionID); err != nil {
				h.logger.Error("webchat: reset failed", "session_id", sessionID, "error", err)
			}
			sessionID = generateSessionID()
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

			resp := h.engine.ProcessMessage(r.Context(), sessionID, msg.Text)
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type:      "message",
				Role:      "assistant",
				Text:      resp.Message,
				Response:  resp,
				SessionID: sessionID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	history := []HistoryMessage{}
	var conv *HistoryConversation
	if h.transcript != nil {
		turns, err := h.transcript.RecentTurns(r.Context(), sessionID, 100)
		if err != nil {
			h.logger.Error("webchat: failed to load history", "session_id", sessionID, "error", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		for _, t := range turns {
			history = append(history, HistoryMessage{
				Role:      t.Role,
				Text:      t.Content,
				Timestamp: t.CreatedAt.Format(time.RFC3339),
			})
		}
		rec, err := h.transcript.GetConversation(r.Context(), sessionID)
		if err != nil {
			h.logger.Error("webchat: failed to load conversation record", "session_id", sessionID, "error", err)
		} else if rec != nil {
			conv = &HistoryConversation{
				Stage:     rec.Stage,
				TurnCount: rec.TurnCount,
				HandedOff: rec.HandedOff,
				Ended:     rec.EndedAt != nil,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{"messages": history}
	if conv != nil {
		payload["conversation"] = conv
	}
	_ = json.NewEncoder(w).Encode(payload)
}
