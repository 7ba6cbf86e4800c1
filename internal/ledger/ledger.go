// Package ledger is the client side of the external balance service.
// The platform only needs to charge an action, refund it on failure, and
// tell an insufficient balance apart from any other failure.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrInsufficientBalance is the user-actionable failure class: the UI
// routes it to a top-up flow instead of a generic retry prompt.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Action identifies a billable operation.
type Action string

const (
	ActionGenerate Action = "trip.generate"
	ActionUpdate   Action = "trip.update"
)

// Ledger charges and refunds billable actions against a user's balance.
type Ledger interface {
	// Charge deducts the action's cost. Returns ErrInsufficientBalance
	// when the balance does not cover it.
	Charge(ctx context.Context, userID string, action Action) error

	// Refund returns a previous charge, e.g. after a failed generation.
	Refund(ctx context.Context, userID string, action Action) error
}

// HTTPLedger calls the balance service over HTTP.
type HTTPLedger struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLedger creates a ledger client for the given base URL.
func NewHTTPLedger(baseURL string) *HTTPLedger {
	return &HTTPLedger{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type chargeRequest struct {
	UserID string `json:"userId"`
	Action Action `json:"action"`
}

func (l *HTTPLedger) post(ctx context.Context, path, userID string, action Action) error {
	payload, err := json.Marshal(chargeRequest{UserID: userID, Action: action})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusPaymentRequired:
		return ErrInsufficientBalance
	default:
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
}

// Charge deducts the action's cost.
func (l *HTTPLedger) Charge(ctx context.Context, userID string, action Action) error {
	return l.post(ctx, "/api/balance/charge", userID, action)
}

// Refund returns a previous charge.
func (l *HTTPLedger) Refund(ctx context.Context, userID string, action Action) error {
	return l.post(ctx, "/api/balance/refund", userID, action)
}

// Free is a no-op ledger for deployments without billing.
type Free struct{}

// Charge always succeeds.
func (Free) Charge(context.Context, string, Action) error { return nil }

// Refund always succeeds.
func (Free) Refund(context.Context, string, Action) error { return nil }
