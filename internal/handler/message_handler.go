package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/service"
)

const maxMessageLength = 5000

// emailPattern matches local@domain.tld shapes; anything stricter rejects
// real addresses.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MessageHandler handles contact-form submissions.
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler creates a MessageHandler with the given service.
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// submitRequest is the expected JSON body for POST /api/submit-message.
// company is a honeypot: humans never see the field, spam bots fill it.
type submitRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	Company      string `json:"company"`
	CaptchaToken string `json:"captchaToken"`
}

// savedTo reports which backends stored the message.
type savedTo struct {
	Supabase     bool `json:"supabase"`
	GoogleSheets bool `json:"google_sheets"`
}

// submitResponse is the JSON body for a successful submission.
type submitResponse struct {
	OK       bool           `json:"ok"`
	Message  *model.Message `json:"message"`
	SavedTo  savedTo        `json:"saved_to"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Submit handles POST /api/submit-message.
// Validation short-circuits in order: JSON shape, honeypot, required fields,
// email shape. Everything after that is delegated to the service.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	company := strings.TrimSpace(req.Company)
	captchaToken := strings.TrimSpace(req.CaptchaToken)

	// A filled honeypot gets a fake success so the bot believes it worked.
	// Nothing is validated or persisted.
	if company != "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if name == "" || email == "" || subject == "" || message == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	if len([]rune(message)) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "Message too long")
		return
	}

	// Outbound saves must finish even if the client disconnects; only the
	// per-call timeouts bound them.
	ctx := context.WithoutCancel(r.Context())

	res, err := h.messageService.Submit(ctx, model.Submission{
		Name:         name,
		Email:        email,
		Subject:      subject,
		Message:      message,
		CaptchaToken: captchaToken,
		IP:           clientIP(r),
	})
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		OK:      true,
		Message: res.Message,
		SavedTo: savedTo{
			Supabase:     res.SavedSupabase,
			GoogleSheets: res.SavedSheets,
		},
		Warnings: res.Warnings,
	})
}

// writeSubmitError maps service errors to status codes and client-safe bodies.
func (h *MessageHandler) writeSubmitError(w http.ResponseWriter, err error) {
	var allFailed *service.AllBackendsFailedError
	switch {
	case errors.Is(err, service.ErrCaptchaFailed):
		writeError(w, http.StatusBadRequest, "CAPTCHA verification failed")
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	case errors.Is(err, service.ErrRateCheckFailed):
		writeError(w, http.StatusInternalServerError, "Rate check failed")
	case errors.As(err, &allFailed):
		writeError(w, http.StatusInternalServerError, allFailed.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// clientIP derives the caller's address: first X-Forwarded-For entry, then
// the transport peer, then "unknown".
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
