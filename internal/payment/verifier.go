package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Kind names what is being paid for.
type Kind string

const (
	KindChannel Kind = "channel"
	KindGroup   Kind = "group"
)

// Verifier checks whether a user has completed the payment required for
// channel or large-group creation. The chain-specific verification lives in
// an external service; the core only branches on the boolean result.
type Verifier interface {
	Verify(ctx context.Context, userID string, kind Kind, currency string) (bool, error)
}

// HTTPVerifier calls a remote verification endpoint.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier constructs an HTTPVerifier. An empty URL yields a verifier
// that rejects everything, so misconfiguration fails closed.
func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type verifyRequest struct {
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
	Currency string `json:"currency"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

// Verify posts the verification request and returns its boolean outcome.
func (v *HTTPVerifier) Verify(ctx context.Context, userID string, kind Kind, currency string) (bool, error) {
	if v.url == "" {
		log.Printf("payment verifier disabled: empty url, rejecting user=%s kind=%s", userID, kind)
		return false, nil
	}

	body, err := json.Marshal(verifyRequest{UserID: userID, Kind: string(kind), Currency: currency})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("payment verification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("payment verification status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode payment verification response: %w", err)
	}
	return out.Success, nil
}
