package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Clinic identity echoed in every structured response.
	ClinicName     string
	ClinicLocation string
	ClinicTimezone string
	ClinicPhone    string
	ClinicEmail    string

	// Session lifecycle
	SessionTTL         time.Duration
	SessionSweepPeriod time.Duration

	// Redis (optional; falls back to the in-memory session store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Postgres audit trail (optional)
	DatabaseURL string

	// Auth/OTP collaborator
	AuthBaseURL string
	AuthAPIKey  string
	AuthTimeout time.Duration
	OTPLength   int
	OTPMaxTries int

	// Email delivery
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string
	EmailTimeout      time.Duration

	// Optional LLM-assisted extraction
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// HTTP surface
	CORSAllowedOrigins []string
	MessageRateLimit   float64
	MessageRateBurst   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicName:     getEnv("CLINIC_NAME", "Clinique Les Oliviers"),
		ClinicLocation: getEnv("CLINIC_LOCATION", "Clinique Les Oliviers, Alger"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Africa/Algiers"),
		ClinicPhone:    getEnv("CLINIC_PHONE", "+213770102030"),
		ClinicEmail:    getEnv("CLINIC_EMAIL", "accueil@lesoliviers.dz"),

		SessionTTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionSweepPeriod: getEnvAsDuration("SESSION_SWEEP_PERIOD", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AuthBaseURL: getEnv("AUTH_BASE_URL", ""),
		AuthAPIKey:  getEnv("AUTH_API_KEY", ""),
		AuthTimeout: getEnvAsDuration("AUTH_TIMEOUT", 5*time.Second),
		OTPLength:   getEnvAsInt("OTP_LENGTH", 6),
		OTPMaxTries: getEnvAsInt("OTP_MAX_TRIES", 3),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinique Les Oliviers"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Clinique Les Oliviers"),
		AWSRegion:         getEnv("AWS_REGION", "eu-west-3"),
		EmailTimeout:      getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: getEnvAsDuration("OPENAI_TIMEOUT", 8*time.Second),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		MessageRateLimit:   getEnvAsFloat("MESSAGE_RATE_LIMIT", 5),
		MessageRateBurst:   getEnvAsInt("MESSAGE_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
