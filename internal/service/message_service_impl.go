package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/repository"
	"github.com/portfolio/backend/pkg/captcha"
	"github.com/portfolio/backend/pkg/sheets"
)

// messageServiceImpl is the production implementation of MessageService.
type messageServiceImpl struct {
	repo      repository.MessageRepository // nil when the Supabase backend is disabled
	verifier  captcha.Verifier             // nil when no captcha secret is configured
	appender  sheets.Appender
	rateLimit bool
}

// NewMessageService creates a MessageService. repo may be nil (Supabase
// backend disabled) and verifier may be nil (captcha not enforced);
// appender must be non-nil, use sheets.Disabled() when unconfigured.
func NewMessageService(repo repository.MessageRepository, verifier captcha.Verifier, appender sheets.Appender, rateLimit bool) MessageService {
	return &messageServiceImpl{
		repo:      repo,
		verifier:  verifier,
		appender:  appender,
		rateLimit: rateLimit,
	}
}

// Submit runs the ordered submission pipeline: captcha, rate check, Supabase
// insert, Sheets append, aggregation. Steps short-circuit as documented on
// MessageService.
func (s *messageServiceImpl) Submit(ctx context.Context, sub model.Submission) (*Result, error) {
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, sub.CaptchaToken); err != nil {
			return nil, ErrCaptchaFailed
		}
	}

	res := &Result{}
	supabaseReason := ""

	if s.repo == nil {
		supabaseReason = "integration disabled"
	} else {
		if s.rateLimit {
			count, err := s.repo.CountSince(ctx, sub.IP, minuteStart(time.Now()))
			if err != nil {
				slog.Error("rate check failed", "ip", sub.IP, "error", err)
				return nil, ErrRateCheckFailed
			}
			if count > 0 {
				return nil, ErrRateLimited
			}
		}

		msg := &model.Message{
			Name:    sub.Name,
			Email:   sub.Email,
			Subject: sub.Subject,
			Message: sub.Message,
			IP:      sub.IP,
		}
		if err := s.repo.Insert(ctx, msg); err != nil {
			slog.Error("supabase insert failed", "error", err)
			supabaseReason = err.Error()
		} else {
			res.SavedSupabase = true
			res.Message = msg
		}
	}

	// The Sheets append is attempted regardless of the Supabase outcome.
	sheetsReason := ""
	sheetsAttempted := false
	if s.appender.Configured() {
		sheetsAttempted = true
		if err := s.appender.Append(ctx, sub.Name, sub.Email, sub.Subject, sub.Message, sub.IP); err != nil {
			slog.Warn("sheets append failed", "error", err)
			sheetsReason = "append failed"
		} else {
			res.SavedSheets = true
		}
	} else {
		sheetsReason = "not configured"
	}

	if !res.SavedSupabase && !res.SavedSheets {
		return nil, &AllBackendsFailedError{
			SupabaseReason: supabaseReason,
			SheetsReason:   sheetsReason,
		}
	}

	if supabaseReason != "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("supabase: %s", supabaseReason))
	}
	// An unconfigured Sheets integration is optional infrastructure, not a
	// failure; only an attempted-and-failed append warrants a warning.
	if sheetsAttempted && sheetsReason != "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("google_sheets: %s", sheetsReason))
	}
	return res, nil
}

// minuteStart truncates t to the start of its UTC minute, the boundary of
// the per-IP submission window.
func minuteStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
