// Package dialog contains the conversation state machine that turns
// free-form patient messages into structured booking actions.
package dialog

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dzhealth/clinic-assistant/internal/auth"
	"github.com/dzhealth/clinic-assistant/internal/extract"
	"github.com/dzhealth/clinic-assistant/internal/llm"
	"github.com/dzhealth/clinic-assistant/internal/notify"
	"github.com/dzhealth/clinic-assistant/internal/observability/metrics"
	"github.com/dzhealth/clinic-assistant/internal/phone"
	"github.com/dzhealth/clinic-assistant/internal/prompts"
	"github.com/dzhealth/clinic-assistant/internal/scope"
	"github.com/dzhealth/clinic-assistant/internal/session"
	"github.com/dzhealth/clinic-assistant/internal/transcript"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

const (
	defaultOTPLength   = 6
	defaultOTPMaxTries = 3

	// escalationConfidence forces a handoff regardless of category.
	escalationConfidence = 0.85

	// maxOutOfScopeHits forces a handoff once a session keeps drifting
	// off-topic.
	maxOutOfScopeHits = 2

	defaultCollaboratorTimeout = 10 * time.Second

	lockStripes = 32
)

// Config wires the engine's collaborators. Store is required;
// everything else degrades gracefully when absent.
type Config struct {
	Store       session.Store
	Selector    *prompts.Selector
	Auth        auth.Service
	Mailer      *notify.Service
	Extractor   *llm.Extractor
	Transcripts *transcript.Store
	Metrics     *metrics.DialogMetrics
	Logger      *logging.Logger

	Clinic ClinicInfo

	OTPLength           int
	OTPMaxTries         int
	CollaboratorTimeout time.Duration
	// EmailTimeout bounds summary delivery; defaults to
	// CollaboratorTimeout.
	EmailTimeout        time.Duration

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// Engine drives the welcome → info_collection → auth → slot_selection
// pipeline. ProcessMessage is total: every (text, session id) pair
// yields a StructuredResponse.
type Engine struct {
	store       session.Store
	selector    *prompts.Selector
	auth        auth.Service
	mailer      *notify.Service
	extractor   *llm.Extractor
	transcripts *transcript.Store
	metrics     *metrics.DialogMetrics
	logger      *logging.Logger

	clinic       ClinicInfo
	otpLength    int
	otpMaxTries  int
	callTimeout  time.Duration
	emailTimeout time.Duration
	otpRE        *regexp.Regexp
	now          func() time.Time

	// Messages for one session are serialized; distinct sessions only
	// contend when they share a stripe.
	locks [lockStripes]sync.Mutex
}

// NewEngine builds a dialog engine from its collaborators.
func NewEngine(cfg Config) *Engine {
	if cfg.Store == nil {
		panic("dialog: session store cannot be nil")
	}
	if cfg.Selector == nil {
		cfg.Selector = prompts.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = defaultOTPLength
	}
	if cfg.OTPMaxTries <= 0 {
		cfg.OTPMaxTries = defaultOTPMaxTries
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = cfg.CollaboratorTimeout
	}
	if cfg.Clinic.Location == "" {
		cfg.Clinic.Location = "Clinique Les Oliviers, Alger"
	}
	if cfg.Clinic.Timezone == "" {
		cfg.Clinic.Timezone = "Africa/Algiers"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		store:        cfg.Store,
		selector:     cfg.Selector,
		auth:         cfg.Auth,
		mailer:       cfg.Mailer,
		extractor:    cfg.Extractor,
		transcripts:  cfg.Transcripts,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		clinic:       cfg.Clinic,
		otpLength:    cfg.OTPLength,
		otpMaxTries:  cfg.OTPMaxTries,
		callTimeout:  cfg.CollaboratorTimeout,
		emailTimeout: cfg.EmailTimeout,
		otpRE:        regexp.MustCompile(fmt.Sprintf(`^\s*(\d{%d})\s*$`, cfg.OTPLength)),
		now:          cfg.Now,
	}
}

func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &e.locks[h.Sum32()%lockStripes]
}

// ProcessMessage runs one patient message through the state machine.
// It never panics and never returns nil.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, text string) (resp *StructuredResponse) {
	start := e.now()

	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, err := e.loadOrCreate(ctx, sessionID)
	if err != nil {
		e.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		st = session.New(sessionID, e.now())
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dialog engine panic recovered", "panic", r, "session_id", sessionID)
			resp = e.newResponse(ActionNeedInfo, st)
			resp.Message = prompts.Fallback
		}
		e.finishTurn(ctx, st, text, resp, start)
	}()

	st.TotalAttempts++
	st.AppendTurn("user", text, e.now())

	resp = e.step(ctx, st, text)
	return resp
}

// step runs the pipeline once the session is loaded and locked.
func (e *Engine) step(ctx context.Context, st *session.State, text string) *StructuredResponse {
	// First contact: greet, offer intents, skip extraction entirely.
	if !st.WelcomeShown {
		st.WelcomeShown = true
		st.Advance(session.StageInfoCollection)
		resp := e.newResponse(ActionShowWelcome, st)
		resp.Message = "Bienvenue à la " + e.clinic.Location + ". Souhaitez-vous prendre, déplacer ou annuler un rendez-vous ?"
		resp.UIHints = &UIHints{Intents: []string{"create", "reschedule", "cancel"}}
		return resp
	}

	// A pending handoff sticks: the assistant stops processing and
	// keeps pointing at the human channel.
	if st.Handoff.Pending {
		return e.handoffResponse(st, st.Handoff.Category, st.Handoff.Reason, 1.0, nil)
	}

	// Out-of-scope gate runs before any extraction.
	if result := scope.Classify(text); result.Matched {
		st.OutOfScopeHits++
		if e.shouldEscalate(result, st) {
			st.Handoff = session.Handoff{
				Pending:  true,
				Category: string(result.Category),
				Reason:   handoffReason(result.Category),
				At:       e.now(),
			}
			e.metrics.ObserveHandoff(string(result.Category))
			e.transcripts.RecordHandoff(ctx, st.ID, string(result.Category), st.Handoff.Reason)
			return e.handoffResponse(st, string(result.Category), st.Handoff.Reason, result.Confidence, result.Evidence)
		}
	}

	if intent := detectIntent(text); intent != "" {
		st.Intent = intent
	}
	if st.Stage == session.StageSignUp && detectConsent(text) {
		now := e.now()
		st.Consent.DataProcessing = session.ConsentGrant{Granted: true, At: now}
		st.Consent.Transactional = session.ConsentGrant{Granted: true, At: now}
	}

	// During sign_in a bare numeric code is an OTP submission, not
	// input for the extractors.
	if st.Stage == session.StageSignIn {
		if code := e.matchOTP(text); code != "" {
			if resp := e.verifyOTP(ctx, st, code); resp != nil {
				return resp
			}
			// Verified: profile copy-back done, fall through to the
			// completion check.
		}
	}

	e.runExtraction(ctx, st, text)

	// A newly confirmed email triggers the account lookup exactly once
	// per session.
	if st.Info.Email.Confirmed != "" && !st.Auth.AccountChecked && !st.Auth.Authenticated {
		if resp := e.resolveIdentity(ctx, st); resp != nil {
			return resp
		}
	}

	return e.completionCheck(ctx, st)
}

func (e *Engine) loadOrCreate(ctx context.Context, sessionID string) (*session.State, error) {
	st, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = session.New(sessionID, e.now())
	}
	return st, nil
}

// finishTurn persists state and audit records after every message.
func (e *Engine) finishTurn(ctx context.Context, st *session.State, text string, resp *StructuredResponse, start time.Time) {
	if resp == nil {
		return
	}
	st.AppendTurn("assistant", resp.Message, e.now())
	st.Touch(e.now())

	if err := e.store.Save(ctx, st); err != nil {
		e.logger.Error("failed to save session", "error", err, "session_id", st.ID)
	}

	e.transcripts.AppendTurn(ctx, st.ID, transcript.TurnRecord{
		Role:    "user",
		Content: text,
	})
	category := ""
	if resp.Disposition != nil {
		category = resp.Disposition.Category
	}
	e.transcripts.AppendTurn(ctx, st.ID, transcript.TurnRecord{
		Role:     "assistant",
		Content:  resp.Message,
		Action:   string(resp.Action),
		Category: category,
	})
	e.transcripts.UpdateStage(ctx, st.ID, string(st.Stage))

	e.metrics.ObserveMessage(string(resp.Action), string(st.Stage))
	e.metrics.ObserveTurnLatency(string(st.Stage), e.now().Sub(start).Seconds())
}

func (e *Engine) shouldEscalate(result scope.Result, st *session.State) bool {
	switch result.Category {
	case scope.CategorySecurity, scope.CategorySensitiveHealth:
		return true
	}
	if result.Confidence >= escalationConfidence {
		return true
	}
	return st.OutOfScopeHits >= maxOutOfScopeHits
}

func handoffReason(category scope.Category) string {
	switch category {
	case scope.CategorySensitiveHealth:
		return "Cette question relève d'un avis médical et doit être traitée par un praticien."
	case scope.CategoryPersonalData:
		return "Les demandes concernant les données personnelles sont traitées par notre équipe."
	case scope.CategoryPricing:
		return "Nos tarifs exacts vous seront confirmés par le secrétariat."
	case scope.CategoryPolicyLegal:
		return "Cette demande nécessite une réponse de notre équipe administrative."
	case scope.CategorySecurity:
		return "Cette demande ne peut pas être traitée par l'assistant."
	}
	return "Votre demande nécessite l'intervention d'un membre de l'équipe."
}

func (e *Engine) handoffResponse(st *session.State, category, reason string, confidence float64, evidence []string) *StructuredResponse {
	resp := e.newResponse(ActionRouteToHuman, st)
	resp.Message = reason + " Vous pouvez joindre la clinique directement."
	resp.Disposition = &DispositionPayload{
		Category:   category,
		Reason:     reason,
		Confidence: confidence,
		Evidence:   evidence,
	}
	resp.Contact = e.contactPayload()
	return resp
}

// matchOTP extracts a complete numeric code of the configured length.
func (e *Engine) matchOTP(text string) string {
	m := e.otpRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// verifyOTP submits the code to the auth collaborator. A nil return
// means authentication succeeded and processing continues.
func (e *Engine) verifyOTP(ctx context.Context, st *session.State, code string) *StructuredResponse {
	if e.auth == nil {
		return e.authUnavailable(st)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	result, err := e.auth.CompleteSignIn(callCtx, st.Info.Email.Confirmed, code)
	if err != nil {
		e.logger.Error("otp verification call failed", "error", err, "session_id", st.ID)
		return e.authUnavailable(st)
	}

	if !result.Success {
		st.Auth.OTPAttempts++
		attemptsLeft := e.otpMaxTries - st.Auth.OTPAttempts
		if attemptsLeft < 0 {
			attemptsLeft = 0
		}
		resp := e.newResponse(ActionSignIn, st)
		resp.Auth = &AuthPayload{
			Method:          "otp",
			AccountExists:   true,
			OTPRequested:    true,
			OTPAttemptsLeft: attemptsLeft,
			Error:           "invalid_code",
		}
		if attemptsLeft == 0 {
			resp.Auth.Error = "otp_attempts_exhausted"
			resp.Message = "Le code saisi est incorrect et le nombre d'essais est épuisé. Vous pouvez demander un nouveau code."
		} else {
			resp.Message = fmt.Sprintf("Le code saisi est incorrect, il vous reste %d essai(s).", attemptsLeft)
		}
		resp.UIHints = &UIHints{ExpectOTP: true}
		return resp
	}

	now := e.now()
	st.Auth.Authenticated = true
	st.Auth.ExternalSessionID = result.ExternalSessionID
	if result.Patient != nil {
		st.Auth.PatientID = result.Patient.ID
		st.ForceConfirm(session.FieldName, result.Patient.Name, now)
		st.ForceConfirm(session.FieldEmail, result.Patient.Email, now)
		if result.Patient.Phone != "" {
			if canonical, err := phone.Normalize(result.Patient.Phone); err == nil {
				st.ForceConfirm(session.FieldPhone, canonical, now)
			} else {
				st.ForceConfirm(session.FieldPhone, result.Patient.Phone, now)
			}
		}
	}
	st.Advance(session.StageInfoCollection)
	return nil
}

func (e *Engine) authUnavailable(st *session.State) *StructuredResponse {
	resp := e.newResponse(ActionNeedInfo, st)
	resp.Message = "Le service d'authentification est momentanément indisponible, merci de réessayer dans un instant."
	resp.Auth = &AuthPayload{Error: "auth_unavailable"}
	return resp
}

// runExtraction applies the local extractors and, when configured and
// still useful, the LLM fallback. First valid candidate wins for every
// field; a value identical to the last extracted one is ignored.
func (e *Engine) runExtraction(ctx context.Context, st *session.State, text string) {
	st.Info.ValidationErrors = nil
	now := e.now()

	for _, candidate := range extract.Names(text) {
		e.offerName(st, candidate, now)
	}
	for _, candidate := range extract.Phones(text) {
		e.offerPhone(st, candidate, now)
	}
	for _, candidate := range extract.Emails(text) {
		e.offerEmail(st, candidate, now)
	}

	if e.extractor != nil && len(st.MissingFields()) > 0 && len(st.Info.ValidationErrors) == 0 {
		if id, err := e.extractor.ExtractIdentity(ctx, text); err == nil {
			if id.Name != "" {
				e.offerName(st, id.Name, now)
			}
			if id.Phone != "" {
				e.offerPhone(st, id.Phone, now)
			}
			if id.Email != "" {
				e.offerEmail(st, id.Email, now)
			}
		}
	}
}

func (e *Engine) offerName(st *session.State, candidate string, now time.Time) {
	fs := &st.Info.Name
	if candidate == "" || candidate == fs.LastExtracted {
		return
	}
	fs.LastExtracted = candidate
	fs.Candidates = appendUnique(fs.Candidates, candidate)
	st.FieldAttempts[session.FieldName]++
	st.Confirm(session.FieldName, candidate, now)
}

func (e *Engine) offerPhone(st *session.State, candidate string, now time.Time) {
	fs := &st.Info.Phone
	if candidate == "" || candidate == fs.LastExtracted {
		return
	}
	fs.LastExtracted = candidate
	fs.Candidates = appendUnique(fs.Candidates, candidate)
	st.FieldAttempts[session.FieldPhone]++

	canonical, err := phone.Normalize(candidate)
	if err != nil {
		if fs.Confirmed == "" {
			if st.Info.ValidationErrors == nil {
				st.Info.ValidationErrors = make(map[string]string)
			}
			st.Info.ValidationErrors[session.FieldPhone] = string(phone.ReasonOf(err))
		}
		return
	}
	delete(st.Info.ValidationErrors, session.FieldPhone)
	st.Confirm(session.FieldPhone, canonical, now)
}

func (e *Engine) offerEmail(st *session.State, candidate string, now time.Time) {
	fs := &st.Info.Email
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" || candidate == fs.LastExtracted {
		return
	}
	fs.LastExtracted = candidate
	fs.Candidates = appendUnique(fs.Candidates, candidate)
	st.FieldAttempts[session.FieldEmail]++
	st.Confirm(session.FieldEmail, candidate, now)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// resolveIdentity runs the one-time account lookup and routes into
// sign_in or sign_up. A nil return means processing continues.
func (e *Engine) resolveIdentity(ctx context.Context, st *session.State) *StructuredResponse {
	if e.auth == nil {
		// Without an auth collaborator the flow degrades to pure
		// slot-filling.
		st.Auth.AccountChecked = true
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	check, err := e.auth.CheckAccountExists(callCtx, st.Info.Email.Confirmed)
	if err != nil {
		e.logger.Error("account check failed", "error", err, "session_id", st.ID)
		return e.authUnavailable(st)
	}

	st.Auth.AccountChecked = true
	st.Auth.AccountExists = check.Exists

	if check.Exists {
		st.Auth.Method = "otp"
		st.Advance(session.StageSignIn)

		otpCtx, cancelOTP := context.WithTimeout(ctx, e.callTimeout)
		defer cancelOTP()
		if _, err := e.auth.InitiateSignIn(otpCtx, st.Info.Email.Confirmed); err != nil {
			e.logger.Error("otp dispatch failed", "error", err, "session_id", st.ID)
			st.Auth.AccountChecked = false // retry the lookup next turn
			return e.authUnavailable(st)
		}
		st.Auth.LastOTPSentAt = e.now()

		resp := e.newResponse(ActionSignIn, st)
		resp.Message = fmt.Sprintf("Un compte existe déjà pour cette adresse. Un code à %d chiffres vient de vous être envoyé par email, pouvez-vous le saisir ?", e.otpLength)
		resp.Auth = &AuthPayload{Method: "otp", AccountExists: true, OTPRequested: true, OTPAttemptsLeft: e.otpMaxTries}
		resp.UIHints = &UIHints{ExpectOTP: true}
		return resp
	}

	st.Auth.Method = "signup"
	st.Advance(session.StageSignUp)

	if st.Consent.DataProcessing.Granted {
		return nil
	}
	resp := e.newResponse(ActionSignUp, st)
	resp.Message = "Aucun compte n'existe pour cette adresse. Pour en créer un, acceptez-vous le traitement de vos données personnelles dans le cadre de la prise de rendez-vous ?"
	resp.Auth = &AuthPayload{Method: "signup", AccountExists: false}
	resp.UIHints = &UIHints{ConsentRequired: true}
	return resp
}

// completionCheck either emits the booking action with the full
// identity or asks for what is still missing.
func (e *Engine) completionCheck(ctx context.Context, st *session.State) *StructuredResponse {
	missing := st.MissingFields()

	if len(missing) == 0 && len(st.Info.ValidationErrors) == 0 {
		if st.Stage == session.StageSignUp && !st.Auth.AccountCreated {
			if !st.Consent.DataProcessing.Granted {
				resp := e.newResponse(ActionSignUp, st)
				resp.Message = "Avant de créer votre compte, j'ai besoin de votre accord pour le traitement de vos données personnelles. Répondez « j'accepte » pour continuer."
				resp.Auth = &AuthPayload{Method: "signup", AccountExists: false}
				resp.UIHints = &UIHints{ConsentRequired: true}
				return resp
			}
			if resp := e.createAccount(ctx, st); resp != nil {
				return resp
			}
		}

		st.Advance(session.StageSlotSelection)

		action := ActionFindSlots
		switch st.Intent {
		case "cancel":
			action = ActionCancel
		case "reschedule":
			action = ActionReschedule
		case "confirmation":
			action = ActionConfirmation
		}

		resp := e.newResponse(action, st)
		resp.Patient = e.patientPayload(st)
		resp.Message = "Merci ! Je recherche les créneaux disponibles."
		if action != ActionFindSlots {
			resp.Message = "Merci ! Je transmets votre demande concernant votre rendez-vous."
		}
		return resp
	}

	st.Advance(session.StageInfoCollection)

	cond := prompts.ConditionFor(missing, st.Info.ValidationErrors)
	message := e.selector.Pick(st.UsedPrompts, cond)

	resp := e.newResponse(ActionNeedInfo, st)
	resp.Message = message
	resp.Patient = e.patientPayload(st)
	return resp
}

// createAccount calls the auth collaborator with the confirmed
// identity and consent record. A nil return means success.
func (e *Engine) createAccount(ctx context.Context, st *session.State) *StructuredResponse {
	if e.auth == nil {
		st.Auth.AccountCreated = true
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	patient, err := e.auth.CreatePatient(callCtx, auth.CreatePatientRequest{
		Name:  st.Info.Name.Confirmed,
		Email: st.Info.Email.Confirmed,
		Phone: st.Info.Phone.Confirmed,
		Consent: auth.ConsentRecord{
			DataProcessing: st.Consent.DataProcessing.Granted,
			Marketing:      st.Consent.Marketing.Granted,
			Transactional:  st.Consent.Transactional.Granted,
		},
	})
	if err != nil {
		e.logger.Error("account creation failed", "error", err, "session_id", st.ID)
		resp := e.newResponse(ActionNeedInfo, st)
		resp.Message = "La création de votre compte n'a pas abouti, merci de réessayer dans un instant."
		resp.Auth = &AuthPayload{Method: "signup", Error: "create_failed"}
		return resp
	}

	st.Auth.AccountCreated = true
	st.Auth.PatientID = patient.ID
	st.Advance(session.StageInfoCollection)
	return nil
}

// SummaryRequest carries the booked slot details for the recap email.
type SummaryRequest struct {
	Service      string
	SlotStart    time.Time
	SlotEnd      time.Time
	Practitioner string
}

// SendEmailSummary is triggered outside the message loop, after a slot
// is booked. It requires a confirmed email on the session.
func (e *Engine) SendEmailSummary(ctx context.Context, sessionID string, req SummaryRequest) *StructuredResponse {
	mu := e.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, err := e.loadOrCreate(ctx, sessionID)
	if err != nil {
		st = session.New(sessionID, e.now())
	}

	if st.Info.Email.Confirmed == "" {
		resp := e.newResponse(ActionNeedInfo, st)
		resp.Message = e.selector.Pick(st.UsedPrompts, prompts.NeedEmail)
		resp.EmailSummary = &EmailSummaryPayload{Sent: false, Error: "no_email_on_file"}
		st.Touch(e.now())
		if err := e.store.Save(ctx, st); err != nil {
			e.logger.Error("failed to save session", "error", err, "session_id", st.ID)
		}
		return resp
	}

	if e.mailer == nil {
		resp := e.handoffResponse(st, "email_delivery", "Le récapitulatif n'a pas pu être envoyé par email.", 1.0, nil)
		resp.EmailSummary = &EmailSummaryPayload{Sent: false, To: st.Info.Email.Confirmed, Error: "mailer_unconfigured"}
		return resp
	}

	callCtx, cancel := context.WithTimeout(ctx, e.emailTimeout)
	defer cancel()

	err = e.mailer.SendAppointmentSummary(callCtx, notify.AppointmentSummary{
		PatientName:    st.Info.Name.Confirmed,
		PatientEmail:   st.Info.Email.Confirmed,
		Service:        req.Service,
		SlotStart:      req.SlotStart,
		SlotEnd:        req.SlotEnd,
		Practitioner:   req.Practitioner,
		ClinicName:     e.clinic.Name,
		ClinicLocation: e.clinic.Location,
		ClinicPhone:    e.clinic.Phone,
		Timezone:       e.clinic.Timezone,
	})
	if err != nil {
		e.logger.Error("summary delivery failed", "error", err, "session_id", sessionID)
		// The patient cannot retry a delivery failure themselves, so
		// this is a handoff rather than a retry message.
		resp := e.handoffResponse(st, "email_delivery", "Le récapitulatif n'a pas pu être envoyé par email.", 1.0, nil)
		resp.EmailSummary = &EmailSummaryPayload{Sent: false, To: st.Info.Email.Confirmed, Error: err.Error()}
		return resp
	}

	st.Advance(session.StageConfirmation)
	st.Touch(e.now())
	if err := e.store.Save(ctx, st); err != nil {
		e.logger.Error("failed to save session", "error", err, "session_id", st.ID)
	}

	resp := e.newResponse(ActionSendEmailSummary, st)
	resp.Message = "Le récapitulatif de votre rendez-vous vient de vous être envoyé par email."
	resp.EmailSummary = &EmailSummaryPayload{Sent: true, To: st.Info.Email.Confirmed}
	resp.Patient = e.patientPayload(st)
	return resp
}

// Reset removes a session and closes its audit record. The REST delete
// and the webchat reset both land here.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if err := e.transcripts.EndConversation(ctx, sessionID); err != nil {
		e.logger.Warn("failed to close conversation record", "error", err, "session_id", sessionID)
	}
	return e.store.Delete(ctx, sessionID)
}

var intentKeywords = map[string][]string{
	"cancel":       {"annuler", "annulation", "cancel"},
	"reschedule":   {"reporter", "déplacer", "décaler", "reprogrammer", "reschedule"},
	"confirmation": {"je confirme", "c'est confirmé", "je valide", "confirm my"},
}

// detectIntent finds an explicit booking intent in the message.
func detectIntent(text string) string {
	lower := strings.ToLower(text)
	for _, intent := range []string{"cancel", "reschedule", "confirmation"} {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return intent
			}
		}
	}
	return ""
}

var consentPhrases = []string{
	"j'accepte", "j’accepte", "je consens", "je donne mon accord",
	"d'accord pour le traitement", "oui j'accepte", "i agree", "i consent",
}

// detectConsent recognizes an explicit data-processing opt-in.
func detectConsent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range consentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
