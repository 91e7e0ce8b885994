package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/handler"
	"github.com/portfolio/backend/internal/logging"
	"github.com/portfolio/backend/internal/repository"
	"github.com/portfolio/backend/internal/service"
	"github.com/portfolio/backend/pkg/captcha"
	"github.com/portfolio/backend/pkg/sheets"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}

	var messageRepo repository.MessageRepository
	if cfg.SupabaseEnabled {
		messageRepo = repository.NewSupabaseMessageRepository(cfg.SupabaseURL, cfg.SupabaseKey)
	} else {
		slog.Info("supabase backend disabled")
	}

	var verifier captcha.Verifier
	if cfg.CaptchaConfigured() {
		verifier = captcha.NewClient(cfg.HCaptchaSecret)
	} else {
		slog.Info("captcha verification disabled (no HCAPTCHA_SECRET)")
	}

	appender := sheets.Disabled()
	if cfg.SheetsConfigured() {
		client, err := sheets.NewClient(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsWorksheet, cfg.GoogleCredentials)
		if err != nil {
			// Sheets is best-effort infrastructure; a bad credential must
			// not keep the endpoint down.
			slog.Warn("google sheets integration disabled", "error", err)
		} else {
			appender = client
		}
	} else {
		slog.Info("google sheets integration not configured")
	}

	messageService := service.NewMessageService(messageRepo, verifier, appender, cfg.RateLimitEnabled)

	h := handler.New(cfg.FrontendURL)
	messageHandler := handler.NewMessageHandler(messageService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/submit-message", messageHandler.Submit)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h.CORS(handler.SecurityHeaders(handler.RequestLogger(mux))),
		ReadTimeout: 10 * time.Second,
		// One submission can chain captcha + rate check + insert + sheets,
		// each with a 10s budget.
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
