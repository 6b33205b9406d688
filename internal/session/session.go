// Package session holds per-visitor state: the resolved identity and the
// in-flight PendingOrder snapshot. Nothing else lives here; carts and orders
// belong to the persistent store.
package session

import (
	"context"
	"errors"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

type Store interface {
	Identity(ctx context.Context, sessionID string) (domain.Identity, error)
	SetIdentity(ctx context.Context, sessionID string, id domain.Identity) error

	PendingOrder(ctx context.Context, sessionID string) (*domain.PendingOrder, error)
	SetPendingOrder(ctx context.Context, sessionID string, po *domain.PendingOrder) error
	ClearPendingOrder(ctx context.Context, sessionID string) error
}

var (
	ErrNoIdentity     = errors.New("no identity in session")
	ErrNoPendingOrder = errors.New("no pending order in session")
)
