package dialog

import (
	"time"

	"github.com/dzhealth/clinic-assistant/internal/session"
)

// Action tags the structured response so the presentation layer knows
// what to render. This core emits no markup.
type Action string

const (
	ActionShowWelcome      Action = "show_welcome"
	ActionNeedInfo         Action = "need_info"
	ActionFindSlots        Action = "find_slots"
	ActionSignIn           Action = "sign_in"
	ActionSignUp           Action = "sign_up"
	ActionSendEmailSummary Action = "send_email_summary"
	ActionRouteToHuman     Action = "route_to_human"
	ActionCreate           Action = "create"
	ActionReschedule       Action = "reschedule"
	ActionCancel           Action = "cancel"
	ActionConfirmation     Action = "confirmation"
)

// ClinicInfo holds the fixed clinic constants echoed in every response.
type ClinicInfo struct {
	Name     string
	Location string
	Timezone string
	Phone    string
	Email    string
}

// PatientPayload is the confirmed identity carried on booking actions.
type PatientPayload struct {
	PatientID string `json:"patient_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// SlotPayload describes the appointment slot under discussion.
type SlotPayload struct {
	Service      string    `json:"service,omitempty"`
	Start        time.Time `json:"start,omitzero"`
	End          time.Time `json:"end,omitzero"`
	Practitioner string    `json:"practitioner,omitempty"`
}

// AuthPayload reports authentication handshake progress.
type AuthPayload struct {
	Method          string `json:"method,omitempty"`
	AccountExists   bool   `json:"account_exists"`
	OTPRequested    bool   `json:"otp_requested,omitempty"`
	OTPAttemptsLeft int    `json:"otp_attempts_left,omitempty"`
	Authenticated   bool   `json:"authenticated,omitempty"`
	Error           string `json:"error,omitempty"`
}

// EmailSummaryPayload reports the outcome of a summary delivery.
type EmailSummaryPayload struct {
	Sent  bool   `json:"sent"`
	To    string `json:"to,omitempty"`
	Error string `json:"error,omitempty"`
}

// DispositionPayload explains a route_to_human decision.
type DispositionPayload struct {
	Category   string   `json:"category"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}

// ContactPayload carries the human-staffed channel coordinates.
type ContactPayload struct {
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`
}

// UIHints are optional rendering hints for the presentation layer.
type UIHints struct {
	Intents         []string `json:"intents,omitempty"`
	ConsentRequired bool     `json:"consent_required,omitempty"`
	ExpectOTP       bool     `json:"expect_otp,omitempty"`
}

// SessionContext echoes session progress so clients can reconcile
// idempotently after retries or reconnects.
type SessionContext struct {
	SessionID      string          `json:"session_id"`
	Stage          string          `json:"stage"`
	MissingFields  []string        `json:"missing_fields,omitempty"`
	Collected      map[string]bool `json:"collected,omitempty"`
	WelcomeShown   bool            `json:"welcome_shown"`
	OutOfScopeHits int             `json:"out_of_scope_hits,omitempty"`
	Intent         string          `json:"intent,omitempty"`
}

// StructuredResponse is the single output type of the dialog engine.
// The clinic location and timezone constants are present on every
// response regardless of action.
type StructuredResponse struct {
	Action         Action `json:"action"`
	Message        string `json:"message,omitempty"`
	ClinicLocation string `json:"clinic_location"`
	Timezone       string `json:"timezone"`

	Patient      *PatientPayload      `json:"patient,omitempty"`
	Slot         *SlotPayload         `json:"slot,omitempty"`
	Auth         *AuthPayload         `json:"auth,omitempty"`
	EmailSummary *EmailSummaryPayload `json:"email_summary,omitempty"`
	Disposition  *DispositionPayload  `json:"disposition,omitempty"`
	Contact      *ContactPayload      `json:"contact,omitempty"`
	UIHints      *UIHints             `json:"ui_hints,omitempty"`

	Session SessionContext `json:"session"`
}

func (e *Engine) newResponse(action Action, st *session.State) *StructuredResponse {
	return &StructuredResponse{
		Action:         action,
		ClinicLocation: e.clinic.Location,
		Timezone:       e.clinic.Timezone,
		Session: SessionContext{
			SessionID:      st.ID,
			Stage:          string(st.Stage),
			MissingFields:  st.MissingFields(),
			Collected:      st.Collected,
			WelcomeShown:   st.WelcomeShown,
			OutOfScopeHits: st.OutOfScopeHits,
			Intent:         st.Intent,
		},
	}
}

func (e *Engine) patientPayload(st *session.State) *PatientPayload {
	return &PatientPayload{
		PatientID: st.Auth.PatientID,
		Name:      st.Info.Name.Confirmed,
		Phone:     st.Info.Phone.Confirmed,
		Email:     st.Info.Email.Confirmed,
	}
}

func (e *Engine) contactPayload() *ContactPayload {
	return &ContactPayload{
		Phone:    e.clinic.Phone,
		Email:    e.clinic.Email,
		Location: e.clinic.Location,
	}
}
