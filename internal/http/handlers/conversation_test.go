package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzhealth/clinic-assistant/internal/dialog"
	"github.com/dzhealth/clinic-assistant/internal/prompts"
	"github.com/dzhealth/clinic-assistant/internal/session"
)

func newHandler(t *testing.T) (*ConversationHandler, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(30 * time.Minute)
	engine := dialog.NewEngine(dialog.Config{
		Store:    store,
		Selector: prompts.NewSelector(rand.New(rand.NewSource(7))),
	})
	return NewConversationHandler(engine, store, nil), store
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestMessageEndpoint(t *testing.T) {
	h, _ := newHandler(t)

	rec := postJSON(t, h.Message, "/v1/conversations/message", MessageRequest{
		SessionID: "sess-1",
		Message:   "Bonjour",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp dialog.StructuredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dialog.ActionShowWelcome, resp.Action)
	assert.NotEmpty(t, resp.ClinicLocation)
	assert.NotEmpty(t, resp.Timezone)
	assert.Equal(t, "sess-1", resp.Session.SessionID)
}

func TestMessageEndpointRequiresSessionID(t *testing.T) {
	h, _ := newHandler(t)

	rec := postJSON(t, h.Message, "/v1/conversations/message", MessageRequest{Message: "Bonjour"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageEndpointRejectsMalformedBody(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/message", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.Message(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	h, store := newHandler(t)

	postJSON(t, h.Message, "/v1/conversations/message", MessageRequest{SessionID: "sess-1", Message: "Bonjour"})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	r := chi.NewRouter()
	r.Delete("/v1/sessions/{sessionID}", h.DeleteSession)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err = store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestHealthEndpointReportsSessionCount(t *testing.T) {
	h, _ := newHandler(t)
	postJSON(t, h.Message, "/v1/conversations/message", MessageRequest{SessionID: "sess-1", Message: "Bonjour"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
}
