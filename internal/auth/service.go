// Package auth is the account/OTP collaborator consumed by the dialog
// engine: account lookup by email, one-time-code sign-in, and patient
// creation with recorded consent.
package auth

import (
	"context"
	"time"
)

// Patient is the profile held by the account service.
type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AccountCheck is the result of an existence lookup.
type AccountCheck struct {
	Exists  bool     `json:"exists"`
	Patient *Patient `json:"patient,omitempty"`
}

// SignInChallenge reports an OTP dispatch.
type SignInChallenge struct {
	OTPSent   bool      `json:"otp_sent"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// SignInResult is the outcome of submitting a code.
type SignInResult struct {
	Success           bool     `json:"success"`
	Patient           *Patient `json:"patient,omitempty"`
	ExternalSessionID string   `json:"external_session_id,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// ConsentRecord mirrors the consent flags sent along with account
// creation.
type ConsentRecord struct {
	DataProcessing bool `json:"data_processing"`
	Marketing      bool `json:"marketing"`
	Transactional  bool `json:"transactional"`
}

// CreatePatientRequest carries the confirmed identity for sign-up.
type CreatePatientRequest struct {
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Consent ConsentRecord `json:"consent"`
}

// Service is the account collaborator interface. Implementations are
// expected to be safe for concurrent use.
type Service interface {
	CheckAccountExists(ctx context.Context, email string) (*AccountCheck, error)
	InitiateSignIn(ctx context.Context, email string) (*SignInChallenge, error)
	CompleteSignIn(ctx context.Context, email, code string) (*SignInResult, error)
	CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error)
}
