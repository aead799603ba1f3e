// Package session holds per-conversation state for the booking
// assistant and the stores that keep it alive between turns.
package session

import (
	"time"
)

// Stage is the conversation stage of a session. Transitions only move
// forward, except an explicit reset.
type Stage string

const (
	StageWelcome        Stage = "welcome"
	StageInfoCollection Stage = "info_collection"
	StageSignIn         Stage = "sign_in"
	StageSignUp         Stage = "sign_up"
	StageSlotSelection  Stage = "slot_selection"
	StageConfirmation   Stage = "confirmation"
	StageCompleted      Stage = "completed"
)

// Field names collected during slot-filling.
const (
	FieldName  = "name"
	FieldPhone = "phone"
	FieldEmail = "email"
)

// FieldState tracks extraction progress for a single identity field.
type FieldState struct {
	Candidates    []string  `json:"candidates,omitempty"`
	Confirmed     string    `json:"confirmed,omitempty"`
	LastExtracted string    `json:"last_extracted,omitempty"`
	ConfirmedAt   time.Time `json:"confirmed_at,omitzero"`
}

// ExtractedInfo bundles the three identity fields plus the validation
// errors produced while trying to confirm them on the last turn.
type ExtractedInfo struct {
	Name  FieldState `json:"name"`
	Phone FieldState `json:"phone"`
	Email FieldState `json:"email"`

	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// Field returns the state for a known field name.
func (e *ExtractedInfo) Field(name string) *FieldState {
	switch name {
	case FieldName:
		return &e.Name
	case FieldPhone:
		return &e.Phone
	case FieldEmail:
		return &e.Email
	}
	return nil
}

// AuthSubState carries the authentication handshake progress.
type AuthSubState struct {
	Authenticated     bool      `json:"authenticated"`
	AccountChecked    bool      `json:"account_checked"`
	AccountExists     bool      `json:"account_exists"`
	Method            string    `json:"method,omitempty"` // "otp" or "signup"
	ExternalSessionID string    `json:"external_session_id,omitempty"`
	PatientID         string    `json:"patient_id,omitempty"`
	AccountCreated    bool      `json:"account_created"`
	OTPAttempts       int       `json:"otp_attempts"`
	LastOTPSentAt     time.Time `json:"last_otp_sent_at,omitzero"`
}

// ConsentGrant is a timestamped opt-in for one processing purpose.
type ConsentGrant struct {
	Granted bool      `json:"granted"`
	At      time.Time `json:"at,omitzero"`
}

// Consent records the three consent categories. DataProcessing is
// mandatory before an account can be created.
type Consent struct {
	DataProcessing ConsentGrant `json:"data_processing"`
	Marketing      ConsentGrant `json:"marketing"`
	Transactional  ConsentGrant `json:"transactional"`
}

// Handoff tracks routing to a human-staffed channel.
type Handoff struct {
	Pending  bool      `json:"pending"`
	Category string    `json:"category,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at,omitzero"`
}

// Turn is one entry of the bounded conversation history.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// maxHistoryTurns bounds the per-session history.
const maxHistoryTurns = 20

// State is the full mutable state of one conversation session.
// Exactly one State exists per session id.
type State struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalAttempts  int            `json:"total_attempts"`
	FieldAttempts  map[string]int `json:"field_attempts,omitempty"`
	OutOfScopeHits int            `json:"out_of_scope_hits"`

	WelcomeShown bool            `json:"welcome_shown"`
	Collected    map[string]bool `json:"collected,omitempty"`
	Intent       string          `json:"intent,omitempty"`

	Info    ExtractedInfo `json:"info"`
	Auth    AuthSubState  `json:"auth"`
	Consent Consent       `json:"consent"`
	Handoff Handoff       `json:"handoff"`

	History     []Turn          `json:"history,omitempty"`
	UsedPrompts map[string]bool `json:"used_prompts,omitempty"`
}

// New creates a fresh State in the welcome stage.
func New(id string, now time.Time) *State {
	return &State{
		ID:            id,
		Stage:         StageWelcome,
		CreatedAt:     now,
		UpdatedAt:     now,
		FieldAttempts: make(map[string]int),
		Collected:     make(map[string]bool),
		UsedPrompts:   make(map[string]bool),
	}
}

// Touch bumps the activity timestamp.
func (s *State) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Advance moves the stage forward. Backward transitions are ignored,
// with one exception: sign_in and sign_up legitimately return to
// info_collection once authentication resolves.
func (s *State) Advance(next Stage) {
	if next == StageInfoCollection && (s.Stage == StageSignIn || s.Stage == StageSignUp) {
		s.Stage = next
		return
	}
	if stageOrder(next) >= stageOrder(s.Stage) {
		s.Stage = next
	}
}

func stageOrder(st Stage) int {
	switch st {
	case StageWelcome:
		return 0
	case StageInfoCollection:
		return 1
	case StageSignIn, StageSignUp:
		return 2
	case StageSlotSelection:
		return 3
	case StageConfirmation:
		return 4
	case StageCompleted:
		return 5
	}
	return -1
}

// AppendTurn records a history entry, evicting the oldest once the
// bound is reached.
func (s *State) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, At: at})
	if len(s.History) > maxHistoryTurns {
		s.History = s.History[len(s.History)-maxHistoryTurns:]
	}
}

// Confirm records a validated value for a field. A confirmed value is
// never replaced by a lower-quality candidate: once set, only an
// authenticated profile copy-back may overwrite it.
func (s *State) Confirm(field, value string, now time.Time) {
	fs := s.Info.Field(field)
	if fs == nil {
		return
	}
	if fs.Confirmed != "" {
		return
	}
	fs.Confirmed = value
	fs.ConfirmedAt = now
	s.Collected[field] = true
}

// ForceConfirm overwrites a field from an authoritative source (the
// authenticated patient profile).
func (s *State) ForceConfirm(field, value string, now time.Time) {
	fs := s.Info.Field(field)
	if fs == nil || value == "" {
		return
	}
	fs.Confirmed = value
	fs.ConfirmedAt = now
	s.Collected[field] = true
}

// MissingFields lists required identity fields without a confirmed
// value, in stable order.
func (s *State) MissingFields() []string {
	var missing []string
	for _, f := range []string{FieldName, FieldPhone, FieldEmail} {
		if s.Info.Field(f).Confirmed == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
