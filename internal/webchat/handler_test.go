package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/dzhealth/clinic-assistant/internal/dialog"
	"github.com/dzhealth/clinic-assistant/internal/session"
	"github.com/dzhealth/clinic-assistant/internal/transcript"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

func newTestHandler(t *testing.T, reader TranscriptReader) *Handler {
	t.Helper()
	engine := dialog.NewEngine(dialog.Config{
		Store:  session.NewMemoryStore(time.Minute),
		Logger: logging.New("error"),
	})
	return NewHandler(engine, reader, logging.New("error"))
}

// stubTranscriptReader serves canned turns and an optional
// conversation record.
type stubTranscriptReader struct {
	turns []transcript.TurnRecord
	conv  *transcript.ConversationRecord
	err   error
}

func (s *stubTranscriptReader) RecentTurns(_ context.Context, _ string, _ int) ([]transcript.TurnRecord, error) {
	return s.turns, s.err
}

func (s *stubTranscriptReader) GetConversation(_ context.Context, _ string) (*transcript.ConversationRecord, error) {
	return s.conv, nil
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32)
}

func TestWebSocketAssignsSessionID(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "")

	msg := receive(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.NotEmpty(t, msg.SessionID)
}

func TestWebSocketConversationFlow(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=ws-session-1")

	msg := receive(t, conn)
	require.Equal(t, "session", msg.Type)
	assert.Equal(t, "ws-session-1", msg.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Bonjour"}))

	msg = receive(t, conn)
	require.Equal(t, "typing", msg.Type)

	msg = receive(t, conn)
	require.Equal(t, "message", msg.Type)
	assert.Equal(t, "assistant", msg.Role)
	assert.NotEmpty(t, msg.Text)
	require.NotNil(t, msg.Response)
	assert.Equal(t, dialog.ActionShowWelcome, msg.Response.Action)
	assert.Equal(t, "Clinique Les Oliviers, Alger", msg.Response.ClinicLocation)
	assert.Equal(t, "Africa/Algiers", msg.Response.Timezone)
}

func TestWebSocketPingPong(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=ws-ping")
	_ = receive(t, conn) // session

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	msg := receive(t, conn)
	assert.Equal(t, "pong", msg.Type)
}

func TestWebSocketResetIssuesNewSession(t *testing.T) {
	h := newTestHandler(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=ws-reset")
	_ = receive(t, conn) // session

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "reset"}))
	msg := receive(t, conn)
	require.Equal(t, "session", msg.Type)
	assert.NotEqual(t, "ws-reset", msg.SessionID)
}

func TestHandleHistory(t *testing.T) {
	ended := time.Now().UTC()
	reader := &stubTranscriptReader{
		turns: []transcript.TurnRecord{
			{Role: "user", Content: "Bonjour", CreatedAt: time.Now().UTC()},
			{Role: "assistant", Content: "Bienvenue", CreatedAt: time.Now().UTC()},
		},
		conv: &transcript.ConversationRecord{
			SessionID: "sess1",
			Stage:     "info_collection",
			TurnCount: 2,
			EndedAt:   &ended,
		},
	}
	h := newTestHandler(t, reader)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()
	h.HandleHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages     []HistoryMessage     `json:"messages"`
		Conversation *HistoryConversation `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "Bienvenue", resp.Messages[1].Text)
	require.NotNil(t, resp.Conversation)
	assert.Equal(t, "info_collection", resp.Conversation.Stage)
	assert.True(t, resp.Conversation.Ended)
}

func TestHandleHistoryMissingSession(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()
	h.HandleHistory(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistoryNoTranscriptStore(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()
	h.HandleHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Messages)
}
