// Package payment wraps the external payment processor: creating a payer
// reference from an email and card token, and capturing a charge. Amounts
// are always the integer count of the currency's minor unit.
package payment

import "context"

type Gateway interface {
	CreatePayer(ctx context.Context, email, token string) (string, error)

	// Capture charges amountMinor against the payer. idempotencyKey makes
	// a replay of the same attempt safe: the processor must not charge
	// twice for one key.
	Capture(ctx context.Context, amountMinor int64, currency, payerID, idempotencyKey string) (string, error)
}

// DeclineError is any gateway-reported failure to charge. StatusUnknown
// marks the ambiguous cases (timeout, connection dropped mid-request) where
// the charge may or may not have landed; those are never blindly retried.
type DeclineError struct {
	Reason        string
	StatusUnknown bool
}

func (e *DeclineError) Error() string {
	if e.StatusUnknown {
		return "payment status unknown: " + e.Reason
	}
	return "payment declined: " + e.Reason
}
