package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ChargeRequest describes one authorization attempt against the gateway.
// IdempotencyKey makes replays of the same attempt safe.
type ChargeRequest struct {
	DeliveryID      int64
	Amount          float64
	PaymentMethodID *int64
	IdempotencyKey  string
}

// ChargeResult is the gateway's answer to an authorization.
type ChargeResult struct {
	TransactionID string
	Approved      bool
	DeclineReason string
}

// Gateway is the external payment processor contract.
type Gateway interface {
	Authorize(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Capture(ctx context.Context, transactionID string, amount float64) error
	Refund(ctx context.Context, transactionID string, amount float64, reason string) error
}

// StatusError is a non-2xx gateway reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.Code, e.Body)
}

// HTTPGateway talks JSON to the payment processor.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates an HTTPGateway with the given request timeout.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type authorizeRequest struct {
	ReferenceID     string  `json:"reference_id"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency_code"`
	PaymentMethodID *int64  `json:"payment_method_id,omitempty"`
	IdempotencyKey  string  `json:"idempotency_key"`
}

type authorizeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type captureRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency_code"`
	Final    bool   `json:"final_capture"`
}

type refundRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency_code"`
	Reason   string `json:"reason,omitempty"`
}

// Authorize places a hold for the given amount.
func (g *HTTPGateway) Authorize(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := authorizeRequest{
		ReferenceID:     fmt.Sprintf("delivery-%d", req.DeliveryID),
		Amount:          fmt.Sprintf("%.2f", req.Amount),
		Currency:        "USD",
		PaymentMethodID: req.PaymentMethodID,
		IdempotencyKey:  req.IdempotencyKey,
	}
	var resp authorizeResponse
	if err := g.post(ctx, "/v1/authorizations", body, &resp); err != nil {
		return nil, err
	}
	return &ChargeResult{
		TransactionID: resp.ID,
		Approved:      resp.Status == "approved",
		DeclineReason: resp.Reason,
	}, nil
}

// Capture settles a previously placed hold.
func (g *HTTPGateway) Capture(ctx context.Context, transactionID string, amount float64) error {
	body := captureRequest{
		Amount:   fmt.Sprintf("%.2f", amount),
		Currency: "USD",
		Final:    true,
	}
	return g.post(ctx, "/v1/authorizations/"+transactionID+"/capture", body, nil)
}

// Refund releases a hold or returns money after capture.
func (g *HTTPGateway) Refund(ctx context.Context, transactionID string, amount float64, reason string) error {
	body := refundRequest{
		Amount:   fmt.Sprintf("%.2f", amount),
		Currency: "USD",
		Reason:   reason,
	}
	return g.post(ctx, "/v1/authorizations/"+transactionID+"/refund", body, nil)
}

func (g *HTTPGateway) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: buf.String()}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

// isRetryable reports whether the attempt may be replayed: transport timeouts
// and server-side failures, never 4xx rejections.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isOutcomeUnknown reports whether the gateway may have acted even though the
// call failed. Connection-level rejections are known failures.
func isOutcomeUnknown(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		// The gateway answered, so it did not charge on 4xx/5xx.
		return false
	}
	return true
}
