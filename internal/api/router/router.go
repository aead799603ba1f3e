package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dzhealth/clinic-assistant/internal/http/handlers"
	httpmiddleware "github.com/dzhealth/clinic-assistant/internal/http/middleware"
	"github.com/dzhealth/clinic-assistant/internal/webchat"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Conversations      *handlers.ConversationHandler
	Webchat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// MessageRateLimit caps messages per second per client IP. Zero
	// disables limiting.
	MessageRateLimit float64
	MessageRateBurst int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", cfg.Conversations.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/conversations", func(conv chi.Router) {
			if cfg.MessageRateLimit > 0 {
				conv.Use(httpmiddleware.RateLimit(cfg.MessageRateLimit, cfg.MessageRateBurst))
			}
			conv.Post("/message", cfg.Conversations.Message)
			conv.Post("/{sessionID}/summary", cfg.Conversations.Summary)
		})
		v1.Delete("/sessions/{sessionID}", cfg.Conversations.DeleteSession)
	})

	if cfg.Webchat != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/ws", cfg.Webchat.HandleWebSocket)
			chat.Get("/history", cfg.Webchat.HandleHistory)
		})
	}

	return r
}
