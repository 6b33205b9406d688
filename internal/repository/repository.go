package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrDuplicateCommit means an order for this pending order already
	// exists; a racing submit won the commit.
	ErrDuplicateCommit = errors.New("order already committed for this pending order")

	// ErrTotalDiverged means the live cart total at commit time no longer
	// equals the amount authorized for capture.
	ErrTotalDiverged = errors.New("live cart total diverged from captured amount")
)

type CartRepository interface {
	Items(ctx context.Context, owner string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, item domain.CartItem) error
	RemoveItem(ctx context.Context, owner string, productID int64) error
	DeleteCart(ctx context.Context, owner string) error

	// MergeCarts reassigns every anonymous-owned item to authOwner in one
	// transaction, summing quantities on product collisions. Idempotent.
	MergeCarts(ctx context.Context, anonOwner, authOwner string) error
}

type ProductRepository interface {
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
}

type OrderRepository interface {
	// CommitOrder persists the order, one line per live cart item, deletes
	// the buyer's cart and appends an outbox row, all in one transaction.
	// The live total is recomputed under row locks and must equal
	// capturedTotal or the transaction aborts with ErrTotalDiverged.
	CommitOrder(ctx context.Context, po *domain.PendingOrder, capturedTotal decimal.Decimal, currency, confirmationID string) (*domain.Order, error)

	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByPendingOrderID(ctx context.Context, pendingOrderID uuid.UUID) (*domain.Order, error)
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
