package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stub is an in-memory account service used in tests and local runs.
// Accounts seeded via SeedAccount exist; every OTP dispatch uses the
// fixed code "123456".
type Stub struct {
	mu       sync.Mutex
	accounts map[string]*Patient
	nextID   int
}

// StubOTPCode is the code the stub accepts for every sign-in.
const StubOTPCode = "123456"

// NewStub creates an empty stub account service.
func NewStub() *Stub {
	return &Stub{accounts: make(map[string]*Patient)}
}

// SeedAccount registers an existing patient profile.
func (s *Stub) SeedAccount(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(p.Email)] = &p
}

func (s *Stub) CheckAccountExists(_ context.Context, email string) (*AccountCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return &AccountCheck{Exists: false}, nil
	}
	clone := *p
	return &AccountCheck{Exists: true, Patient: &clone}, nil
}

func (s *Stub) InitiateSignIn(_ context.Context, email string) (*SignInChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[strings.ToLower(email)]; !ok {
		return &SignInChallenge{OTPSent: false, Error: "unknown account"}, nil
	}
	return &SignInChallenge{OTPSent: true, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (s *Stub) CompleteSignIn(_ context.Context, email, code string) (*SignInResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return &SignInResult{Success: false, Error: "unknown account"}, nil
	}
	if code != StubOTPCode {
		return &SignInResult{Success: false, Error: "invalid code"}, nil
	}
	clone := *p
	return &SignInResult{
		Success:           true,
		Patient:           &clone,
		ExternalSessionID: fmt.Sprintf("ext-%s", p.ID),
	}, nil
}

func (s *Stub) CreatePatient(_ context.Context, req CreatePatientRequest) (*Patient, error) {
	if !req.Consent.DataProcessing {
		return nil, fmt.Errorf("auth: data processing consent is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(req.Email)
	if _, ok := s.accounts[key]; ok {
		return nil, fmt.Errorf("auth: account already exists for %s", req.Email)
	}
	s.nextID++
	p := &Patient{
		ID:    fmt.Sprintf("pat-%04d", s.nextID),
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}
	s.accounts[key] = p
	clone := *p
	return &clone, nil
}

var _ Service = (*Stub)(nil)
