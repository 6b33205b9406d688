package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthRequired = errors.New("authenticated identity required for checkout")

	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrNoPendingOrder: the session holds no pending order, or it belongs
	// to a different buyer. The visitor restarts checkout.
	ErrNoPendingOrder = errors.New("no pending order for this session")
)

// ValidationError reports the required shipping fields that were absent.
// Recoverable; the visitor is re-prompted.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required shipping fields: %s", strings.Join(e.MissingFields, ", "))
}

// PaymentDeclinedError is a gateway-reported capture failure. No
// persistence happened; the visitor may retry with a different token.
// StatusUnknown marks ambiguous outcomes that must never be blindly
// retried with a fresh idempotency key.
type PaymentDeclinedError struct {
	Reason        string
	StatusUnknown bool
}

func (e *PaymentDeclinedError) Error() string {
	if e.StatusUnknown {
		return "payment status unknown: " + e.Reason
	}
	return "payment declined: " + e.Reason
}

// CommitFault means the capture was confirmed but the order could not be
// recorded. Not locally recoverable: the confirmation id and buyer are
// logged for manual reconciliation and the visitor must not be re-charged.
type CommitFault struct {
	ConfirmationID string
	Buyer          string
	Err            error
}

func (e *CommitFault) Error() string {
	return fmt.Sprintf("payment captured (confirmation %s) but order not recorded for buyer %s: %v",
		e.ConfirmationID, e.Buyer, e.Err)
}

func (e *CommitFault) Unwrap() error {
	return e.Err
}
