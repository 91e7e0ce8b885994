package service

import (
	"context"

	"github.com/portfolio/backend/internal/model"
)

// Result reports the outcome of persisting one submission across backends.
type Result struct {
	// Message is the stored record when the Supabase insert succeeded,
	// nil otherwise.
	Message *model.Message

	SavedSupabase bool
	SavedSheets   bool

	// Warnings names backends that failed while the other one succeeded.
	Warnings []string
}

// MessageService defines the business logic for contact-form submissions:
// captcha enforcement, per-IP rate limiting, and persistence to the
// configured backends.
type MessageService interface {
	// Submit verifies and persists one submission. The returned error is one
	// of ErrCaptchaFailed, ErrRateCheckFailed, ErrRateLimited, or
	// *AllBackendsFailedError; on nil error at least one backend saved.
	Submit(ctx context.Context, sub model.Submission) (*Result, error)
}
