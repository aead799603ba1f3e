package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"

	"github.com/dzhealth/clinic-assistant/internal/api/router"
	"github.com/dzhealth/clinic-assistant/internal/auth"
	appconfig "github.com/dzhealth/clinic-assistant/internal/config"
	"github.com/dzhealth/clinic-assistant/internal/dialog"
	"github.com/dzhealth/clinic-assistant/internal/http/handlers"
	"github.com/dzhealth/clinic-assistant/internal/llm"
	"github.com/dzhealth/clinic-assistant/internal/notify"
	"github.com/dzhealth/clinic-assistant/internal/observability/metrics"
	"github.com/dzhealth/clinic-assistant/internal/prompts"
	"github.com/dzhealth/clinic-assistant/internal/session"
	"github.com/dzhealth/clinic-assistant/internal/transcript"
	"github.com/dzhealth/clinic-assistant/internal/webchat"
	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, dialogMetrics := setupDialogMetrics()

	store := buildSessionStore(cfg, logger)
	go session.RunSweeper(ctx, store, cfg.SessionSweepPeriod, func(removed int) {
		dialogMetrics.ObserveEvictions(removed)
		if removed > 0 {
			logger.Info("session sweep", "removed", removed)
		}
	})

	db := connectAuditDB(cfg.DatabaseURL, logger)
	if db != nil {
		defer db.Close()
	}

	transcripts := transcript.NewStore(db)

	engine := dialog.NewEngine(dialog.Config{
		Store:       store,
		Selector:    prompts.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano()))),
		Auth:        buildAuthService(cfg, logger),
		Mailer:      notify.NewService(buildEmailSender(ctx, cfg, logger), logger),
		Extractor:   buildExtractor(cfg, logger),
		Transcripts: transcripts,
		Metrics:     dialogMetrics,
		Logger:      logger,
		Clinic: dialog.ClinicInfo{
			Name:     cfg.ClinicName,
			Location: cfg.ClinicLocation,
			Timezone: cfg.ClinicTimezone,
			Phone:    cfg.ClinicPhone,
			Email:    cfg.ClinicEmail,
		},
		OTPLength:           cfg.OTPLength,
		OTPMaxTries:         cfg.OTPMaxTries,
		CollaboratorTimeout: cfg.AuthTimeout,
		EmailTimeout:        cfg.EmailTimeout,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Conversations:      handlers.NewConversationHandler(engine, store, logger),
		Webchat:            webchat.NewHandler(engine, transcripts, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MessageRateLimit:   cfg.MessageRateLimit,
		MessageRateBurst:   cfg.MessageRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// setupDialogMetrics registers the dialog counters on a dedicated
// registry and returns its scrape handler.
func setupDialogMetrics() (http.Handler, *metrics.DialogMetrics) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDialogMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// buildSessionStore picks Redis when configured, falling back to the
// lock-striped in-memory store.
func buildSessionStore(cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session store", "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	return session.NewRedisStore(client, cfg.SessionTTL, otel.Tracer("clinic-assistant.session"))
}

// connectAuditDB opens the optional Postgres transcript database.
// Returns nil when no DATABASE_URL is configured.
func connectAuditDB(databaseURL string, logger *logging.Logger) *sql.DB {
	if databaseURL == "" {
		return nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		return nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("audit database unreachable, transcripts disabled", "error", err)
		db.Close()
		return nil
	}
	logger.Info("audit database connected")
	return db
}

// buildAuthService returns the HTTP auth collaborator, or the local
// stub when no base URL is configured.
func buildAuthService(cfg *appconfig.Config, logger *logging.Logger) auth.Service {
	if client := auth.NewHTTPClient(cfg.AuthBaseURL, cfg.AuthAPIKey, cfg.AuthTimeout, logger); client != nil {
		return client
	}
	logger.Warn("no auth service configured, using in-process stub")
	return auth.NewStub()
}

// buildEmailSender selects the delivery backend from EMAIL_PROVIDER.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

// buildExtractor enables LLM-assisted extraction when an API key is
// present. The engine works without it.
func buildExtractor(cfg *appconfig.Config, logger *logging.Logger) *llm.Extractor {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return llm.NewExtractor(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel, cfg.OpenAITimeout, logger)
}
