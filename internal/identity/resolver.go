// Package identity resolves the owner identity for a visitor session and
// detects the anonymous → authenticated transition that triggers the cart
// merge.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/session"
)

type Resolver struct {
	sessions session.Store
}

func NewResolver(sessions session.Store) *Resolver {
	return &Resolver{sessions: sessions}
}

// Resolution is the outcome of resolving one request's identity.
// JustAuthenticated is true exactly once per login: the session previously
// held an anonymous token and the visitor now presents an authenticated id.
type Resolution struct {
	Identity          domain.Identity
	JustAuthenticated bool
	PreviousAnonymous string
}

// Resolve determines the current identity for the session. authUserID is
// the authenticated user id from the request boundary, empty for anonymous
// visitors. A session with no stored identity gets a fresh anonymous token
// (or the authenticated id directly when already logged in).
func (r *Resolver) Resolve(ctx context.Context, sessionID, authUserID string) (Resolution, error) {
	stored, err := r.sessions.Identity(ctx, sessionID)
	if errors.Is(err, session.ErrNoIdentity) {
		id := domain.NewAnonymousIdentity()
		if authUserID != "" {
			id = domain.AuthenticatedIdentity(authUserID)
		}
		if err2 := r.sessions.SetIdentity(ctx, sessionID, id); err2 != nil {
			return Resolution{}, fmt.Errorf("store identity: %w", err2)
		}
		return Resolution{Identity: id}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("read session identity: %w", err)
	}

	if authUserID == "" || stored.Value == authUserID {
		return Resolution{Identity: stored}, nil
	}

	id := domain.AuthenticatedIdentity(authUserID)
	if !stored.Anonymous {
		// Account switch between two authenticated ids, no cart to merge.
		if err := r.sessions.SetIdentity(ctx, sessionID, id); err != nil {
			return Resolution{}, fmt.Errorf("store identity: %w", err)
		}
		return Resolution{Identity: id}, nil
	}

	// Login transition: the stored identity is an anonymous token and the
	// visitor is now authenticated. The stored identity is left untouched
	// until CompleteLogin; if the cart merge fails, the next request
	// resolves the same transition again and retries it.
	return Resolution{
		Identity:          id,
		JustAuthenticated: true,
		PreviousAnonymous: stored.Value,
	}, nil
}

// CompleteLogin persists the authenticated identity for the session,
// consuming the login transition. Callers invoke it only after the cart
// merge for the transition has succeeded.
func (r *Resolver) CompleteLogin(ctx context.Context, sessionID string, id domain.Identity) error {
	if err := r.sessions.SetIdentity(ctx, sessionID, id); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}
