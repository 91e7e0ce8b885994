// Package captcha verifies hCaptcha tokens against the siteverify endpoint.
// Uses raw HTTP calls (no SDK) to minimize external dependencies.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the hCaptcha siteverify endpoint.
const DefaultVerifyURL = "https://hcaptcha.com/siteverify"

const verifyTimeout = 10 * time.Second

// ErrVerificationFailed is returned when the verifier does not report success.
var ErrVerificationFailed = errors.New("captcha: verification failed")

// Verifier validates a client-supplied captcha token.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// Client is the hCaptcha implementation of Verifier.
type Client struct {
	Secret     string
	VerifyURL  string
	httpClient *http.Client
}

// NewClient creates a Client using the given shared secret.
func NewClient(secret string) *Client {
	return &Client{
		Secret:     secret,
		VerifyURL:  DefaultVerifyURL,
		httpClient: &http.Client{Timeout: verifyTimeout},
	}
}

// verifyResponse is the subset of the siteverify response we act on.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the secret and token to siteverify. Transport failures,
// malformed responses, and non-success results all return
// ErrVerificationFailed so callers treat them uniformly.
func (c *Client) Verify(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("secret", c.Secret)
	form.Set("response", token)

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return ErrVerificationFailed
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrVerificationFailed
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ErrVerificationFailed
	}
	if !result.Success {
		return ErrVerificationFailed
	}
	return nil
}
