package domain

type CheckoutStatus string

const (
	CheckoutStatusBrowsing        CheckoutStatus = "BROWSING"
	CheckoutStatusStarted         CheckoutStatus = "CHECKOUT_STARTED"
	CheckoutStatusAwaitingPayment CheckoutStatus = "AWAITING_PAYMENT"
	CheckoutStatusCommitted       CheckoutStatus = "COMMITTED"
	CheckoutStatusFailed          CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCommitted
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
