package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/checkout"
	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/pricing"
	"github.com/samantaanjo/go_storefront/internal/repository"
)

// CheckoutService is the slice of the checkout orchestrator the handlers
// need.
type CheckoutService interface {
	StartCheckout(ctx context.Context, sessionID string, buyer domain.Identity, shipping domain.ShippingDetails) (*domain.PendingOrder, error)
	PaymentPage(ctx context.Context, sessionID string, buyer domain.Identity) (*domain.PendingOrder, error)
	SubmitPayment(ctx context.Context, sessionID string, buyer domain.Identity, email, token string) (*domain.Order, error)
	Status(ctx context.Context, sessionID string, buyer domain.Identity) (domain.CheckoutStatus, error)
}

// OrderReader serves the order confirmation view.
type OrderReader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type CheckoutHandler struct {
	svc     CheckoutService
	orders  OrderReader
	timeout time.Duration
}

func NewCheckoutHandler(svc CheckoutService, orders OrderReader, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, orders: orders, timeout: timeout}
}

type SubmitPaymentRequestDTO struct {
	Email        string `json:"email"`
	PaymentToken string `json:"payment_token"`
}

type PendingOrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	Status          domain.CheckoutStatus  `json:"status"`
	Shipping        domain.ShippingDetails `json:"shipping"`
	Total           decimal.Decimal        `json:"total"`
	TotalMinorUnits int64                  `json:"total_minor_units"`
	CreatedAt       time.Time              `json:"created_at"`
}

type CheckoutStatusDTO struct {
	Status domain.CheckoutStatus `json:"status"`
}

// StartCheckout prices the live cart and opens the payment step.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var shipping domain.ShippingDetails
	if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	po, err := h.svc.StartCheckout(ctx, getSessionID(r.Context()), getIdentity(r.Context()), shipping)
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, pendingOrderResponse(po, domain.CheckoutStatusStarted))
}

// Status reports where the visitor is in the checkout flow.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.svc.Status(ctx, getSessionID(r.Context()), getIdentity(r.Context()))
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutStatusDTO{Status: status})
}

// PaymentPage re-reads the pending order snapshot. Safe to reload.
func (h *CheckoutHandler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	po, err := h.svc.PaymentPage(ctx, getSessionID(r.Context()), getIdentity(r.Context()))
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pendingOrderResponse(po, domain.CheckoutStatusAwaitingPayment))
}

// SubmitPayment captures the authorized total and commits the order. On
// success the client is redirected to the confirmation view.
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubmitPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.PaymentToken == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and payment_token are required")
		return
	}

	order, err := h.svc.SubmitPayment(ctx, getSessionID(r.Context()), getIdentity(r.Context()), req.Email, req.PaymentToken)
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	http.Redirect(w, r, "/api/v1/orders/"+order.ID.String(), http.StatusSeeOther)
}

// GetOrder serves the order confirmation view. Only the buyer sees their
// own order.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "no such order")
		return
	}
	if err != nil {
		log.Printf("failed to read order: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if buyer := getIdentity(r.Context()); order.Buyer != buyer.String() {
		respondError(w, http.StatusNotFound, "order_not_found", "no such order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	var (
		validation *checkout.ValidationError
		declined   *checkout.PaymentDeclinedError
		fault      *checkout.CommitFault
	)
	switch {
	case errors.Is(err, checkout.ErrAuthRequired):
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to check out")
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "the cart is empty")
	case errors.Is(err, checkout.ErrNoPendingOrder):
		respondError(w, http.StatusConflict, "no_pending_order", "no checkout in progress for this session")
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, "validation_failed",
			"missing required fields: "+strings.Join(validation.MissingFields, ", "))
	case errors.As(err, &declined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", declined.Reason)
	case errors.As(err, &fault):
		// The charge went through but the order did not land. Surface the
		// confirmation id so support can reconcile.
		respondError(w, http.StatusInternalServerError, "order_commit_failed",
			fmt.Sprintf("payment was captured but the order could not be recorded; contact support with confirmation id %s", fault.ConfirmationID))
	default:
		log.Printf("checkout error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func pendingOrderResponse(po *domain.PendingOrder, status domain.CheckoutStatus) PendingOrderDTO {
	return PendingOrderDTO{
		ID:              po.ID,
		Status:          status,
		Shipping:        po.Shipping,
		Total:           po.Total,
		TotalMinorUnits: pricing.MinorUnits(po.Total),
		CreatedAt:       po.CreatedAt,
	}
}
