package service

import (
	"errors"
	"fmt"
)

// ErrCaptchaFailed means the captcha verifier did not confirm the token.
var ErrCaptchaFailed = errors.New("captcha verification failed")

// ErrRateCheckFailed means the rate-limit query itself failed. The request
// cannot proceed: without the count there is no safe default-allow or
// default-deny.
var ErrRateCheckFailed = errors.New("rate check failed")

// ErrRateLimited means the client already submitted within the current
// UTC-minute window.
var ErrRateLimited = errors.New("too many requests")

// AllBackendsFailedError is returned when no backend stored the message.
// Reasons are short, client-safe strings per backend.
type AllBackendsFailedError struct {
	SupabaseReason string
	SheetsReason   string
}

func (e *AllBackendsFailedError) Error() string {
	return fmt.Sprintf("message was not saved: supabase: %s; google_sheets: %s",
		e.SupabaseReason, e.SheetsReason)
}
