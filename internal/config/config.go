package config

import (
	"errors"
	"os"
)

// Config holds every runtime setting. It is built once at process start and
// handed to the components that need it; nothing reads the environment after
// Load returns.
type Config struct {
	Port        string
	FrontendURL string

	// Supabase REST backend (the messages store).
	SupabaseURL     string
	SupabaseKey     string
	SupabaseEnabled bool

	// Per-IP rate limiting, backed by the messages store. Toggled separately
	// from SupabaseEnabled so persistence can be turned off without silently
	// dropping anti-abuse checks (or vice versa).
	RateLimitEnabled bool

	// hCaptcha. An empty secret disables verification for the deployment.
	HCaptchaSecret string

	// Google Sheets secondary store. Both fields must be set for the
	// integration to be active.
	SheetsSpreadsheetID string
	SheetsWorksheet     string
	GoogleCredentials   string
}

// Load builds a Config from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:        envOr("PORT", "8080"),
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:4321"),

		SupabaseURL:     firstNonEmpty(os.Getenv("SUPABASE_URL"), os.Getenv("VITE_SUPABASE_URL")),
		SupabaseKey:     os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseEnabled: os.Getenv("SUPABASE_ENABLED") == "true",

		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") != "false",

		HCaptchaSecret: os.Getenv("HCAPTCHA_SECRET"),

		SheetsSpreadsheetID: os.Getenv("SHEETS_SPREADSHEET_ID"),
		SheetsWorksheet:     envOr("SHEETS_WORKSHEET", "Messages"),
		GoogleCredentials:   os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
	}

	if err := cfg.validate(os.Getenv("RATE_LIMIT_ENABLED") == "true"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects combinations that would otherwise fail (or silently skip
// work) at request time. rateLimitExplicit reports whether RATE_LIMIT_ENABLED
// was set to "true" by the operator rather than defaulted.
func (c Config) validate(rateLimitExplicit bool) error {
	if c.SupabaseEnabled && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return errors.New("SUPABASE_ENABLED is true but SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY is not set")
	}
	// Rate limiting lives in the messages store; explicitly asking for it
	// without the store is a misconfiguration, not something to skip quietly.
	if rateLimitExplicit && !c.SupabaseEnabled {
		return errors.New("RATE_LIMIT_ENABLED is true but the Supabase backend is disabled; rate limiting requires the messages store")
	}
	return nil
}

// SheetsConfigured reports whether the Google Sheets integration has enough
// configuration to be active.
func (c Config) SheetsConfigured() bool {
	return c.SheetsSpreadsheetID != "" && c.GoogleCredentials != ""
}

// CaptchaConfigured reports whether captcha verification is enforced.
func (c Config) CaptchaConfigured() bool {
	return c.HCaptchaSecret != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
