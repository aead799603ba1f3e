package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists conversation transcripts to PostgreSQL for long-term audit.
// All methods tolerate a nil receiver so callers can run without a database.
type Store struct {
	db *sql.DB
}

// NewStore creates a transcript store. Returns nil when no database is configured.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// ConversationRecord represents a conversation in the database.
type ConversationRecord struct {
	ID             uuid.UUID
	SessionID      string
	Stage          string
	TurnCount      int
	UserTurnCount  int
	AssistantCount int
	HandedOff      bool
	StartedAt      time.Time
	LastTurnAt     *time.Time
	EndedAt        *time.Time
}

// TurnRecord represents one stored message of a conversation.
type TurnRecord struct {
	ID        uuid.UUID
	SessionID string
	Role      string
	Content   string
	Action    string
	Category  string
	CreatedAt time.Time
}

// EnsureConversation creates or refreshes the conversation row for a session.
// Returns the conversation UUID.
func (s *Store) EnsureConversation(ctx context.Context, sessionID string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}
	if strings.TrimSpace(sessionID) == "" {
		return uuid.Nil, fmt.Errorf("transcript: session id required")
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&existingID)

	if err == nil {
		s.db.ExecContext(ctx,
			`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
			time.Now(), existingID,
		)
		return existingID, nil
	}

	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("transcript: failed to check existing: %w", err)
	}

	newID := uuid.New()
	now := time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, session_id, stage, turn_count, user_turn_count, assistant_turn_count,
			handed_off, started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, newID, sessionID, "welcome", 0, 0, 0, false, now, now, now)

	if err != nil {
		// Another process may have created it between the SELECT and INSERT.
		if strings.Contains(err.Error(), "duplicate key") {
			return s.EnsureConversation(ctx, sessionID)
		}
		return uuid.Nil, fmt.Errorf("transcript: failed to create: %w", err)
	}

	return newID, nil
}

// AppendTurn persists a turn and updates conversation counters.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn TurnRecord) error {
	if s == nil || s.db == nil {
		return nil
	}

	if _, err := s.EnsureConversation(ctx, sessionID); err != nil {
		return err
	}

	turnID := turn.ID
	if turnID == uuid.Nil {
		turnID = uuid.New()
	}
	timestamp := turn.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (
			id, session_id, role, content, action, category, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, turnID, sessionID, turn.Role, turn.Content, turn.Action, turn.Category, timestamp)
	if err != nil {
		return fmt.Errorf("transcript: failed to insert turn: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transcript: failed to read insert result: %w", err)
	}
	if rowsAffected == 0 {
		return nil
	}

	counterColumn := "turn_count"
	switch turn.Role {
	case "user":
		counterColumn = "user_turn_count"
	case "assistant":
		counterColumn = "assistant_turn_count"
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversations SET
			turn_count = turn_count + 1,
			%s = %s + 1,
			last_turn_at = $1,
			updated_at = $1
		WHERE session_id = $2
	`, counterColumn, counterColumn), timestamp, sessionID)
	if err != nil {
		return fmt.Errorf("transcript: failed to update counters: %w", err)
	}

	return nil
}

// RecordHandoff marks the conversation as routed to a human operator.
func (s *Store) RecordHandoff(ctx context.Context, sessionID, category, reason string) error {
	if s == nil || s.db == nil {
		return nil
	}

	if _, err := s.EnsureConversation(ctx, sessionID); err != nil {
		return err
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET
			handed_off = TRUE,
			handoff_category = $1,
			handoff_reason = $2,
			updated_at = $3
		WHERE session_id = $4
	`, category, reason, now, sessionID)
	if err != nil {
		return fmt.Errorf("transcript: failed to record handoff: %w", err)
	}
	return nil
}

// UpdateStage records the dialog stage a session has reached.
func (s *Store) UpdateStage(ctx context.Context, sessionID, stage string) error {
	if s == nil || s.db == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET stage = $1, updated_at = $2 WHERE session_id = $3
	`, stage, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("transcript: failed to update stage: %w", err)
	}
	return nil
}

// EndConversation marks a conversation as ended.
func (s *Store) EndConversation(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET
			ended_at = $1,
			updated_at = $1
		WHERE session_id = $2 AND ended_at IS NULL
	`, now, sessionID)
	return err
}

// GetConversation retrieves a conversation by session ID.
func (s *Store) GetConversation(ctx context.Context, sessionID string) (*ConversationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var rec ConversationRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, stage, turn_count, user_turn_count, assistant_turn_count,
		       handed_off, started_at, last_turn_at, ended_at
		FROM conversations WHERE session_id = $1
	`, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.Stage, &rec.TurnCount, &rec.UserTurnCount,
		&rec.AssistantCount, &rec.HandedOff, &rec.StartedAt, &rec.LastTurnAt, &rec.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to get conversation: %w", err)
	}
	return &rec, nil
}

// RecentTurns returns the newest turns of a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, action, category, created_at
		FROM (
			SELECT id, session_id, role, content, action, category, created_at
			FROM conversation_turns
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) t ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.Action, &t.Category, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: failed to read turns: %w", err)
	}
	return turns, nil
}
