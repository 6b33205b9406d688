// Package checkout drives the cart → pending order → capture → commit state
// machine. The pending order lives in session state and is only ever the
// amount authorized for capture; order lines always come from the live cart
// inside the commit transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/metrics"
	"github.com/samantaanjo/go_storefront/internal/payment"
	"github.com/samantaanjo/go_storefront/internal/pricing"
	"github.com/samantaanjo/go_storefront/internal/repository"
	"github.com/samantaanjo/go_storefront/internal/session"
)

// Carts is the slice of the cart service the orchestrator needs.
type Carts interface {
	Items(ctx context.Context, owner string) ([]domain.CartItem, error)
	Invalidate(owner string)
}

type Orchestrator struct {
	carts    Carts
	orders   repository.OrderRepository
	sessions session.Store
	gateway  payment.Gateway
	metrics  *metrics.CheckoutMetrics
	currency string
}

func NewOrchestrator(
	carts Carts,
	orders repository.OrderRepository,
	sessions session.Store,
	gateway payment.Gateway,
	m *metrics.CheckoutMetrics,
	currency string) *Orchestrator {

	return &Orchestrator{
		carts:    carts,
		orders:   orders,
		sessions: sessions,
		gateway:  gateway,
		metrics:  m,
		currency: currency,
	}
}

// StartCheckout moves the visitor from Browsing to CheckoutStarted: it
// prices the current cart, builds the PendingOrder snapshot and stores it in
// the session. A validation or empty-cart failure leaves the session
// untouched.
func (o *Orchestrator) StartCheckout(
	ctx context.Context,
	sessionID string,
	buyer domain.Identity,
	shipping domain.ShippingDetails) (*domain.PendingOrder, error) {

	if buyer.IsZero() || buyer.Anonymous {
		return nil, ErrAuthRequired
	}
	if missing := shipping.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	items, err := o.carts.Items(ctx, buyer.String())
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	po := &domain.PendingOrder{
		ID:        uuid.New(),
		Buyer:     buyer.String(),
		Shipping:  shipping,
		Total:     pricing.Total(items),
		CreatedAt: time.Now().UTC(),
	}
	if err := o.sessions.SetPendingOrder(ctx, sessionID, po); err != nil {
		return nil, fmt.Errorf("store pending order: %w", err)
	}

	o.metrics.Started.Inc()
	return po, nil
}

// PaymentPage re-reads the pending order for display. Idempotent: a page
// reload re-reads the snapshot and never recomputes against the live cart.
func (o *Orchestrator) PaymentPage(ctx context.Context, sessionID string, buyer domain.Identity) (*domain.PendingOrder, error) {
	return o.pendingOrderFor(ctx, sessionID, buyer)
}

// Status derives the visitor's checkout position from session state. The
// snapshot exists from shipping submission until the commit lands, so its
// presence means a payment is awaited; Committed clears the snapshot and
// falls back to Browsing on the next read.
func (o *Orchestrator) Status(ctx context.Context, sessionID string, buyer domain.Identity) (domain.CheckoutStatus, error) {
	_, err := o.pendingOrderFor(ctx, sessionID, buyer)
	if errors.Is(err, ErrNoPendingOrder) {
		return domain.CheckoutStatusBrowsing, nil
	}
	if err != nil {
		return "", err
	}
	return domain.CheckoutStatusAwaitingPayment, nil
}

// SubmitPayment runs AwaitingPayment → Committed: creates a payer
// reference, captures the authorized total outside any store lock, and on
// confirmation commits order + lines + cart clearance as one transaction.
func (o *Orchestrator) SubmitPayment(
	ctx context.Context,
	sessionID string,
	buyer domain.Identity,
	email, token string) (*domain.Order, error) {

	if buyer.IsZero() || buyer.Anonymous {
		return nil, ErrAuthRequired
	}

	po, err := o.pendingOrderFor(ctx, sessionID, buyer)
	if err != nil {
		return nil, err
	}

	// The idempotency key is pending order + attempt. The attempt counter
	// only advances after a definite decline, so a retry following an
	// unknown-status outcome reuses the same key and cannot double-charge.
	attempt := po.Attempt + 1
	idempotencyKey := fmt.Sprintf("%s:%d", po.ID, attempt)

	payerID, err := o.gateway.CreatePayer(ctx, email, token)
	if err != nil {
		return nil, o.mapGatewayError(err)
	}

	captureStart := time.Now()
	confirmationID, err := o.gateway.Capture(ctx,
		pricing.MinorUnits(po.Total), o.currency, payerID, idempotencyKey)
	o.metrics.CaptureLatency.Observe(float64(time.Since(captureStart).Milliseconds()))
	if err != nil {
		declined := o.mapGatewayError(err)
		var pd *PaymentDeclinedError
		if errors.As(declined, &pd) && !pd.StatusUnknown {
			po.Attempt = attempt
			if err2 := o.sessions.SetPendingOrder(ctx, sessionID, po); err2 != nil {
				log.Printf("failed to persist payment attempt counter: %v", err2)
			}
		}
		return nil, declined
	}

	order, err := o.orders.CommitOrder(ctx, po, po.Total, o.currency, confirmationID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCommit) {
			// A racing submit already committed this pending order; the
			// idempotency key deduplicated the charge on the gateway side.
			existing, err2 := o.orders.GetOrderByPendingOrderID(ctx, po.ID)
			if err2 == nil {
				o.finishCommit(ctx, sessionID, po.Buyer)
				return existing, nil
			}
			err = fmt.Errorf("lookup committed order: %w", err2)
		}

		o.metrics.CommitFaults.Inc()
		fault := &CommitFault{ConfirmationID: confirmationID, Buyer: po.Buyer, Err: err}
		log.Printf("CRITICAL: %v", fault)
		return nil, fault
	}

	o.finishCommit(ctx, sessionID, po.Buyer)
	o.metrics.Committed.Inc()
	log.Printf("checkout %s: %s, order %s", po.ID, domain.CheckoutStatusCommitted, order.ID)
	return order, nil
}

func (o *Orchestrator) pendingOrderFor(ctx context.Context, sessionID string, buyer domain.Identity) (*domain.PendingOrder, error) {
	po, err := o.sessions.PendingOrder(ctx, sessionID)
	if errors.Is(err, session.ErrNoPendingOrder) {
		return nil, ErrNoPendingOrder
	}
	if err != nil {
		return nil, fmt.Errorf("read pending order: %w", err)
	}
	// A stale or hijacked session: the snapshot belongs to someone else.
	if po.Buyer != buyer.String() {
		return nil, ErrNoPendingOrder
	}
	return po, nil
}

func (o *Orchestrator) finishCommit(ctx context.Context, sessionID, buyer string) {
	o.carts.Invalidate(buyer)
	if err := o.sessions.ClearPendingOrder(ctx, sessionID); err != nil {
		// The commit already landed; a leftover snapshot is refused on
		// replay by the orders unique constraint.
		log.Printf("failed to clear pending order from session: %v", err)
	}
}

func (o *Orchestrator) mapGatewayError(err error) error {
	var decline *payment.DeclineError
	if errors.As(err, &decline) {
		o.metrics.Declined.Inc()
		return &PaymentDeclinedError{Reason: decline.Reason, StatusUnknown: decline.StatusUnknown}
	}
	return fmt.Errorf("payment gateway: %w", err)
}
