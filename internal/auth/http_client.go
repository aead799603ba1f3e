package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

const defaultTimeout = 5 * time.Second

// HTTPClient talks to the account service's JSON REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHTTPClient creates an account client. Returns nil when baseURL is
// empty so callers can fall back to the stub.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *HTTPClient {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CheckAccountExists looks an account up by email.
func (c *HTTPClient) CheckAccountExists(ctx context.Context, email string) (*AccountCheck, error) {
	var out AccountCheck
	path := "/v1/accounts/lookup?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitiateSignIn asks the service to send an OTP to the address.
func (c *HTTPClient) InitiateSignIn(ctx context.Context, email string) (*SignInChallenge, error) {
	var out SignInChallenge
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/otp", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteSignIn submits the code the patient typed.
func (c *HTTPClient) CompleteSignIn(ctx context.Context, email, code string) (*SignInResult, error) {
	var out SignInResult
	body := map[string]string{"email": email, "code": code}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePatient registers a new patient with the recorded consent.
func (c *HTTPClient) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	var out struct {
		Patient *Patient `json:"patient"`
		Error   string   `json:"error,omitempty"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/patients", req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("auth: create patient refused: %s", out.Error)
	}
	if out.Patient == nil {
		return nil, fmt.Errorf("auth: create patient returned no profile")
	}
	return out.Patient, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("auth: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("auth: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Error("auth service returned error status", "status", resp.StatusCode, "path", path)
		return fmt.Errorf("auth: service returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("auth: failed to decode response: %w", err)
	}
	return nil
}

var _ Service = (*HTTPClient)(nil)
