package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the persisted record of a successfully captured purchase.
// Created exactly once per capture confirmation; immutable thereafter.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	PendingOrderID uuid.UUID       `json:"pending_order_id"`
	Buyer          string          `json:"buyer"`
	Shipping       ShippingDetails `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	ConfirmationID string          `json:"confirmation_id"`
	OrderDate      time.Time       `json:"order_date"`
	Lines          []OrderLine     `json:"lines"`
}

// OrderLine is one distinct product captured from the cart at commit time.
// Owned exclusively by its Order and created in the same transaction.
type OrderLine struct {
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
