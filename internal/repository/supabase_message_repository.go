// Package repository persists contact messages through the Supabase REST
// interface. Uses raw HTTP calls (no SDK) to minimize external dependencies.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/model"
)

// MessageRepository defines the persistence interface for contact messages.
// It is defined here (in repository) to avoid an import cycle with service.
type MessageRepository interface {
	// CountSince returns how many messages from the given IP have a
	// created_at at or after since.
	CountSince(ctx context.Context, ip string, since time.Time) (int, error)

	// Insert stores a new message and populates msg.ID and msg.CreatedAt
	// from the server-assigned values.
	Insert(ctx context.Context, msg *model.Message) error
}

// callTimeout bounds every round trip to the store. One attempt, no retries.
const callTimeout = 10 * time.Second

// SupabaseMessageRepository is the Supabase REST implementation of
// MessageRepository. It talks to /rest/v1/messages using the service-role
// key for both the apikey header and the bearer token.
type SupabaseMessageRepository struct {
	restURL    string
	serviceKey string
	httpClient *http.Client
}

// NewSupabaseMessageRepository creates a repository targeting the messages
// table under the given Supabase project URL.
func NewSupabaseMessageRepository(baseURL, serviceKey string) *SupabaseMessageRepository {
	return &SupabaseMessageRepository{
		restURL:    strings.TrimRight(baseURL, "/") + "/rest/v1/messages",
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// Ensure SupabaseMessageRepository implements MessageRepository at compile time.
var _ MessageRepository = (*SupabaseMessageRepository)(nil)

// CountSince queries for rows matching ip with created_at >= since using
// PostgREST eq./gte. predicates.
func (r *SupabaseMessageRepository) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	params := url.Values{}
	params.Set("select", "id,created_at")
	params.Set("ip", "eq."+ip)
	params.Set("created_at", "gte."+since.UTC().Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.restURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("query returned status %d", resp.StatusCode)
	}

	var rows []struct {
		ID        string `json:"id"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		// An unreadable 2xx body means no rows we can count; treat as empty
		// rather than failing the rate check.
		return 0, nil
	}
	return len(rows), nil
}

// Insert posts one row and reads back the created record from the
// return=representation response.
func (r *SupabaseMessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	payload, err := json.Marshal(map[string]string{
		"name":    msg.Name,
		"email":   msg.Email,
		"subject": msg.Subject,
		"message": msg.Message,
		"ip":      msg.IP,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.restURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s", summarizeError(body))
	}

	// return=representation yields an array containing the created row.
	var created []model.Message
	if err := json.Unmarshal(body, &created); err == nil && len(created) > 0 {
		msg.ID = created[0].ID
		msg.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (r *SupabaseMessageRepository) setHeaders(req *http.Request) {
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
}

// summarizeError reduces a PostgREST error payload to one short string.
// Never returns raw payloads to avoid leaking query details to clients.
func summarizeError(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "Insert failed"
}
