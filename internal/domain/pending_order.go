package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingDetails are the fields the visitor submits when starting checkout.
// All fields are required.
type ShippingDetails struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// MissingFields returns the names of required shipping fields that are empty.
func (s ShippingDetails) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
		{"address", s.Address},
		{"city", s.City},
		{"province", s.Province},
		{"postal_code", s.PostalCode},
		{"phone", s.Phone},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// PendingOrder is the in-flight checkout snapshot held in session state
// between "checkout submitted" and "payment confirmed". Total is the amount
// authorized for capture; order lines are always drawn from the live cart
// at commit time, never from this snapshot.
type PendingOrder struct {
	ID        uuid.UUID       `json:"id"`
	Buyer     string          `json:"buyer"`
	Shipping  ShippingDetails `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`

	// Attempt counts SubmitPayment calls against this pending order. The
	// gateway idempotency key is derived from ID and Attempt so a replay
	// of the same attempt cannot charge twice.
	Attempt int `json:"attempt"`
}
