package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/portfolio/backend/internal/model"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockMessageRepository struct {
	countFunc   func(ctx context.Context, ip string, since time.Time) (int, error)
	insertFunc  func(ctx context.Context, msg *model.Message) error
	countCalls  int
	insertCalls int
}

func (m *mockMessageRepository) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	m.countCalls++
	if m.countFunc != nil {
		return m.countFunc(ctx, ip, since)
	}
	return 0, nil
}

func (m *mockMessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	m.insertCalls++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, msg)
	}
	return nil
}

type mockVerifier struct {
	verifyFunc func(ctx context.Context, token string) error
	calls      int
}

func (m *mockVerifier) Verify(ctx context.Context, token string) error {
	m.calls++
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, token)
	}
	return nil
}

type mockAppender struct {
	configured bool
	appendFunc func(ctx context.Context, name, email, subject, message, ip string) error
	calls      int
}

func (m *mockAppender) Configured() bool { return m.configured }

func (m *mockAppender) Append(ctx context.Context, name, email, subject, message, ip string) error {
	m.calls++
	if m.appendFunc != nil {
		return m.appendFunc(ctx, name, email, subject, message, ip)
	}
	return nil
}

var testSubmission = model.Submission{
	Name:    "Alice",
	Email:   "alice@example.com",
	Subject: "Hi",
	Message: "Hello there",
	IP:      "203.0.113.9",
}

// ---------------------------------------------------------------------------
// Captcha
// ---------------------------------------------------------------------------

func TestMessageService_Submit_CaptchaFailureShortCircuits(t *testing.T) {
	repo := &mockMessageRepository{}
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) error {
			return errors.New("bad token")
		},
	}
	appender := &mockAppender{configured: true}
	svc := NewMessageService(repo, verifier, appender, true)

	_, err := svc.Submit(context.Background(), testSubmission)

	if !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("expected ErrCaptchaFailed, got %v", err)
	}
	if repo.countCalls != 0 || repo.insertCalls != 0 || appender.calls != 0 {
		t.Error("expected no persistence calls after captcha failure")
	}
}

func TestMessageService_Submit_NilVerifierSkipsCaptcha(t *testing.T) {
	repo := &mockMessageRepository{}
	svc := NewMessageService(repo, nil, &mockAppender{}, false)

	res, err := svc.Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SavedSupabase {
		t.Error("expected supabase save")
	}
}

func TestMessageService_Submit_TokenReachesVerifier(t *testing.T) {
	var gotToken string
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) error {
			gotToken = token
			return nil
		},
	}
	svc := NewMessageService(&mockMessageRepository{}, verifier, &mockAppender{}, false)

	sub := testSubmission
	sub.CaptchaToken = "tok-123"
	if _, err := svc.Submit(context.Background(), sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "tok-123" {
		t.Errorf("expected token to reach verifier, got %q", gotToken)
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestMessageService_Submit_RateCheckTransportFailureIsFatal(t *testing.T) {
	repo := &mockMessageRepository{
		countFunc: func(ctx context.Context, ip string, since time.Time) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	appender := &mockAppender{configured: true}
	svc := NewMessageService(repo, nil, appender, true)

	_, err := svc.Submit(context.Background(), testSubmission)

	if !errors.Is(err, ErrRateCheckFailed) {
		t.Fatalf("expected ErrRateCheckFailed, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Error("expected no insert after failed rate check")
	}
	if appender.calls != 0 {
		t.Error("expected no sheets append after failed rate check")
	}
}

func TestMessageService_Submit_RateLimited(t *testing.T) {
	repo := &mockMessageRepository{
		countFunc: func(ctx context.Context, ip string, since time.Time) (int, error) {
			return 1, nil
		},
	}
	svc := NewMessageService(repo, nil, &mockAppender{}, true)

	_, err := svc.Submit(context.Background(), testSubmission)

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Error("expected no insert when rate limited")
	}
}

func TestMessageService_Submit_RateLimitDisabledSkipsCheck(t *testing.T) {
	repo := &mockMessageRepository{}
	svc := NewMessageService(repo, nil, &mockAppender{}, false)

	if _, err := svc.Submit(context.Background(), testSubmission); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.countCalls != 0 {
		t.Errorf("expected no rate check, got %d calls", repo.countCalls)
	}
	if repo.insertCalls != 1 {
		t.Errorf("expected one insert, got %d", repo.insertCalls)
	}
}

func TestMessageService_Submit_RateWindowIsCurrentUTCMinute(t *testing.T) {
	var gotIP string
	var gotSince time.Time
	repo := &mockMessageRepository{
		countFunc: func(ctx context.Context, ip string, since time.Time) (int, error) {
			gotIP = ip
			gotSince = since
			return 0, nil
		},
	}
	svc := NewMessageService(repo, nil, &mockAppender{}, true)

	before := time.Now().UTC().Truncate(time.Minute)
	if _, err := svc.Submit(context.Background(), testSubmission); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now().UTC().Truncate(time.Minute)

	if gotIP != testSubmission.IP {
		t.Errorf("expected rate check for %q, got %q", testSubmission.IP, gotIP)
	}
	if gotSince.Second() != 0 || gotSince.Nanosecond() != 0 {
		t.Errorf("expected second/subsecond truncated to zero, got %v", gotSince)
	}
	if gotSince.Before(before) || gotSince.After(after) {
		t.Errorf("expected window start in [%v, %v], got %v", before, after, gotSince)
	}
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestMessageService_Submit_BothBackendsUnavailable(t *testing.T) {
	svc := NewMessageService(nil, nil, &mockAppender{configured: false}, false)

	_, err := svc.Submit(context.Background(), testSubmission)

	var allFailed *AllBackendsFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("expected AllBackendsFailedError, got %v", err)
	}
	if allFailed.SupabaseReason != "integration disabled" {
		t.Errorf("unexpected supabase reason: %q", allFailed.SupabaseReason)
	}
	if allFailed.SheetsReason != "not configured" {
		t.Errorf("unexpected sheets reason: %q", allFailed.SheetsReason)
	}
	if !strings.Contains(allFailed.Error(), "supabase") || !strings.Contains(allFailed.Error(), "google_sheets") {
		t.Errorf("aggregated message should name both backends: %q", allFailed.Error())
	}
}

func TestMessageService_Submit_SupabaseOnlySuccess(t *testing.T) {
	repo := &mockMessageRepository{
		insertFunc: func(ctx context.Context, msg *model.Message) error {
			msg.ID = "m1"
			msg.CreatedAt = time.Now().UTC()
			return nil
		},
	}
	svc := NewMessageService(repo, nil, &mockAppender{configured: false}, false)

	res, err := svc.Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SavedSupabase || res.SavedSheets {
		t.Errorf("expected supabase-only save, got %+v", res)
	}
	if res.Message == nil || res.Message.ID != "m1" {
		t.Errorf("expected stored record with server-assigned id, got %+v", res.Message)
	}
	// Unconfigured Sheets is optional infrastructure, not a failure.
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestMessageService_Submit_SheetsCoversSupabaseInsertFailure(t *testing.T) {
	repo := &mockMessageRepository{
		insertFunc: func(ctx context.Context, msg *model.Message) error {
			return errors.New("duplicate key value")
		},
	}
	appender := &mockAppender{configured: true}
	svc := NewMessageService(repo, nil, appender, false)

	res, err := svc.Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SavedSupabase || !res.SavedSheets {
		t.Errorf("expected sheets-only save, got %+v", res)
	}
	if res.Message != nil {
		t.Error("expected nil record when the insert failed")
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "supabase:") {
		t.Errorf("expected one supabase warning, got %v", res.Warnings)
	}
}

func TestMessageService_Submit_SupabaseCoversSheetsFailure(t *testing.T) {
	repo := &mockMessageRepository{}
	appender := &mockAppender{
		configured: true,
		appendFunc: func(ctx context.Context, name, email, subject, message, ip string) error {
			return errors.New("quota exceeded")
		},
	}
	svc := NewMessageService(repo, nil, appender, false)

	res, err := svc.Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SavedSupabase || res.SavedSheets {
		t.Errorf("expected supabase-only save, got %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "google_sheets:") {
		t.Errorf("expected one google_sheets warning, got %v", res.Warnings)
	}
}

func TestMessageService_Submit_BothBackendsFail(t *testing.T) {
	repo := &mockMessageRepository{
		insertFunc: func(ctx context.Context, msg *model.Message) error {
			return errors.New("Insert failed")
		},
	}
	appender := &mockAppender{
		configured: true,
		appendFunc: func(ctx context.Context, name, email, subject, message, ip string) error {
			return errors.New("auth error")
		},
	}
	svc := NewMessageService(repo, nil, appender, false)

	_, err := svc.Submit(context.Background(), testSubmission)

	var allFailed *AllBackendsFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("expected AllBackendsFailedError, got %v", err)
	}
	if allFailed.SupabaseReason != "Insert failed" {
		t.Errorf("unexpected supabase reason: %q", allFailed.SupabaseReason)
	}
	if allFailed.SheetsReason != "append failed" {
		t.Errorf("unexpected sheets reason: %q", allFailed.SheetsReason)
	}
}

func TestMessageService_Submit_SheetsAttemptedDespiteSupabaseDisabled(t *testing.T) {
	appender := &mockAppender{configured: true}
	svc := NewMessageService(nil, nil, appender, false)

	res, err := svc.Submit(context.Background(), testSubmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appender.calls != 1 {
		t.Errorf("expected one append call, got %d", appender.calls)
	}
	if res.SavedSupabase || !res.SavedSheets {
		t.Errorf("expected sheets-only save, got %+v", res)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "supabase: integration disabled" {
		t.Errorf("expected disabled-supabase warning, got %v", res.Warnings)
	}
}

func TestMessageService_Submit_InsertReceivesSubmissionFields(t *testing.T) {
	var stored *model.Message
	repo := &mockMessageRepository{
		insertFunc: func(ctx context.Context, msg *model.Message) error {
			stored = msg
			return nil
		},
	}
	svc := NewMessageService(repo, nil, &mockAppender{}, false)

	if _, err := svc.Submit(context.Background(), testSubmission); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected Insert to be called")
	}
	if stored.Name != "Alice" || stored.Email != "alice@example.com" || stored.Subject != "Hi" ||
		stored.Message != "Hello there" || stored.IP != "203.0.113.9" {
		t.Errorf("unexpected stored message: %+v", stored)
	}
}
