package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// HTTPGateway talks JSON to the payment processor. All calls go through a
// circuit breaker so a degraded processor cannot pile up blocked checkout
// requests; an open breaker fails fast without issuing a charge.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A card decline is a processor answer, not a processor failure;
		// it must not open the breaker.
		IsSuccessful: func(err error) bool {
			var decline *DeclineError
			return err == nil || errors.As(err, &decline)
		},
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

type createPayerRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type createPayerResponse struct {
	PayerID string `json:"payer_id"`
}

type captureRequest struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	PayerID     string `json:"payer_id"`
}

type captureResponse struct {
	ConfirmationID string `json:"confirmation_id"`
	Reason         string `json:"reason"`
}

func (g *HTTPGateway) CreatePayer(ctx context.Context, email, token string) (string, error) {
	body, err := g.post(ctx, "/v1/payers", createPayerRequest{Email: email, Token: token}, "")
	if err != nil {
		return "", err
	}

	var resp createPayerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode payer response: %w", err)
	}
	return resp.PayerID, nil
}

func (g *HTTPGateway) Capture(ctx context.Context, amountMinor int64, currency, payerID, idempotencyKey string) (string, error) {
	req := captureRequest{AmountMinor: amountMinor, Currency: currency, PayerID: payerID}
	body, err := g.post(ctx, "/v1/charges", req, idempotencyKey)
	if err != nil {
		return "", err
	}

	var resp captureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}
	return resp.ConfirmationID, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any, idempotencyKey string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	body, err := g.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("build gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return buf.Bytes(), nil
		case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
			var decline captureResponse
			reason := "rejected by processor"
			if json.Unmarshal(buf.Bytes(), &decline) == nil && decline.Reason != "" {
				reason = decline.Reason
			}
			return nil, &DeclineError{Reason: reason}
		default:
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return nil, mapTransportError(err)
	}
	return body, nil
}

func mapTransportError(err error) error {
	var decline *DeclineError
	if errors.As(err, &decline) {
		return decline
	}

	// The request may have reached the processor before the timeout; the
	// charge status is unknown and a blind retry risks a duplicate charge.
	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return &DeclineError{Reason: err.Error(), StatusUnknown: true}
	}

	// Breaker open: no request was issued, safe to report as a plain
	// decline and let the visitor retry later.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &DeclineError{Reason: "payment service unavailable"}
	}

	return err
}
