package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/payment"
	"github.com/samantaanjo/go_storefront/internal/pricing"
	"github.com/samantaanjo/go_storefront/internal/repository"
)

// MockCarts implements Carts over an in-memory item map.
type MockCarts struct {
	m           sync.RWMutex
	items       map[string][]domain.CartItem
	itemsErr    error
	Invalidated []string
}

func NewMockCarts() *MockCarts {
	return &MockCarts{items: make(map[string][]domain.CartItem)}
}

func (m *MockCarts) Items(_ context.Context, owner string) ([]domain.CartItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	return m.items[owner], nil
}

func (m *MockCarts) Invalidate(owner string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.Invalidated = append(m.Invalidated, owner)
}

func (m *MockCarts) set(owner string, items ...domain.CartItem) {
	m.m.Lock()
	defer m.m.Unlock()
	m.items[owner] = items
}

func (m *MockCarts) snapshot(owner string) []domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]domain.CartItem(nil), m.items[owner]...)
}

func (m *MockCarts) clear(owner string) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.items, owner)
}

// MockOrders mimics the transactional commit: recompute the live total,
// refuse a second commit of the same pending order, clear the cart.
type MockOrders struct {
	m         sync.Mutex
	carts     *MockCarts
	committed map[uuid.UUID]*domain.Order
	CommitErr error
}

func NewMockOrders(carts *MockCarts) *MockOrders {
	return &MockOrders{carts: carts, committed: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockOrders) CommitOrder(
	_ context.Context,
	po *domain.PendingOrder,
	capturedTotal decimal.Decimal,
	currency, confirmationID string) (*domain.Order, error) {

	m.m.Lock()
	defer m.m.Unlock()
	if m.CommitErr != nil {
		return nil, m.CommitErr
	}
	if _, ok := m.committed[po.ID]; ok {
		return nil, repository.ErrDuplicateCommit
	}

	items := m.carts.snapshot(po.Buyer)
	if !pricing.Total(items).Equal(capturedTotal) {
		return nil, repository.ErrTotalDiverged
	}

	order := &domain.Order{
		ID:             uuid.New(),
		PendingOrderID: po.ID,
		Buyer:          po.Buyer,
		Shipping:       po.Shipping,
		Total:          capturedTotal,
		Currency:       currency,
		ConfirmationID: confirmationID,
		OrderDate:      time.Now().UTC(),
	}
	for _, it := range items {
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	m.committed[po.ID] = order
	m.carts.clear(po.Buyer)
	return order, nil
}

func (m *MockOrders) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.committed {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrders) GetOrderByPendingOrderID(_ context.Context, pendingOrderID uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if o, ok := m.committed[pendingOrderID]; ok {
		return o, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrders) orderCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.committed)
}

// MockGateway implements payment.Gateway and records every capture.
// CaptureGate, when set, runs before each capture is recorded; tests use
// it as a rendezvous point for concurrent submits.
type MockGateway struct {
	m              sync.Mutex
	CreatePayerErr error
	CaptureErr     error
	CaptureGate    func()
	Captures       []CaptureCall
}

type CaptureCall struct {
	AmountMinor    int64
	Currency       string
	PayerID        string
	IdempotencyKey string
}

func (m *MockGateway) CreatePayer(_ context.Context, _, _ string) (string, error) {
	if m.CreatePayerErr != nil {
		return "", m.CreatePayerErr
	}
	return "payer_1", nil
}

func (m *MockGateway) Capture(_ context.Context, amountMinor int64, currency, payerID, idempotencyKey string) (string, error) {
	if m.CaptureGate != nil {
		m.CaptureGate()
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.Captures = append(m.Captures, CaptureCall{
		AmountMinor:    amountMinor,
		Currency:       currency,
		PayerID:        payerID,
		IdempotencyKey: idempotencyKey,
	})
	if m.CaptureErr != nil {
		return "", m.CaptureErr
	}
	return "ch_ok", nil
}

func (m *MockGateway) captureKeys() map[string]int {
	m.m.Lock()
	defer m.m.Unlock()
	keys := make(map[string]int)
	for _, c := range m.Captures {
		keys[c.IdempotencyKey]++
	}
	return keys
}

var _ payment.Gateway = (*MockGateway)(nil)
var _ repository.OrderRepository = (*MockOrders)(nil)
var _ Carts = (*MockCarts)(nil)
