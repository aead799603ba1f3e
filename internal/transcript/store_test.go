package transcript

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_NilReceiverIsSafe(t *testing.T) {
	var store *Store

	id, err := store.EnsureConversation(context.Background(), "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	assert.NoError(t, store.AppendTurn(context.Background(), "sess-1", TurnRecord{Role: "user", Content: "bonjour"}))
	assert.NoError(t, store.RecordHandoff(context.Background(), "sess-1", "sensitive_health", "self report"))
	assert.NoError(t, store.EndConversation(context.Background(), "sess-1"))

	rec, err := store.GetConversation(context.Background(), "sess-1")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_EnsureConversationCreates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery("SELECT id FROM conversations WHERE session_id").
		WithArgs("sess-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO conversations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store.EnsureConversation(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureConversationReusesExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM conversations WHERE session_id").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.EnsureConversation(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, existing, id)
}

func TestStore_AppendTurnUpdatesCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM conversations WHERE session_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("user_turn_count = user_turn_count").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.AppendTurn(context.Background(), "sess-1", TurnRecord{
		Role:    "user",
		Content: "Je suis Silas",
		Action:  "need_info",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendTurnIdempotentOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM conversations WHERE session_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// ON CONFLICT DO NOTHING affects zero rows, counters stay untouched.
	mock.ExpectExec("INSERT INTO conversation_turns").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.AppendTurn(context.Background(), "sess-1", TurnRecord{
		ID:   uuid.New(),
		Role: "assistant",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordHandoff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM conversations WHERE session_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("handed_off = TRUE").
		WithArgs("jailbreak_or_security", "instruction override attempt", sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.RecordHandoff(context.Background(), "sess-1", "jailbreak_or_security", "instruction override attempt")
	require.NoError(t, err)
}

func TestStore_RecentTurns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now()

	mock.ExpectQuery("FROM conversation_turns").
		WithArgs("sess-1", 10).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "session_id", "role", "content", "action", "category", "created_at"}).
			AddRow(uuid.New(), "sess-1", "user", "Bonjour", "", "", now.Add(-time.Minute)).
			AddRow(uuid.New(), "sess-1", "assistant", "Bienvenue !", "show_welcome", "", now))

	turns, err := store.RecentTurns(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "show_welcome", turns[1].Action)
}
