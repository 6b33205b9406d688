package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity is the owner of a cart: either an opaque anonymous token minted
// on first visit, or the authenticated user's identifier after login.
type Identity struct {
	Value     string
	Anonymous bool
}

func NewAnonymousIdentity() Identity {
	return Identity{Value: uuid.NewString(), Anonymous: true}
}

func AuthenticatedIdentity(userID string) Identity {
	return Identity{Value: userID}
}

func (i Identity) IsZero() bool {
	return i.Value == ""
}

// String serializes the identity for session storage. The prefix keeps
// anonymous tokens distinguishable from user ids after a round trip.
func (i Identity) String() string {
	if i.Anonymous {
		return "anon:" + i.Value
	}
	return "user:" + i.Value
}

func ParseIdentity(s string) (Identity, error) {
	switch {
	case strings.HasPrefix(s, "anon:"):
		return Identity{Value: strings.TrimPrefix(s, "anon:"), Anonymous: true}, nil
	case strings.HasPrefix(s, "user:"):
		return Identity{Value: strings.TrimPrefix(s, "user:")}, nil
	default:
		return Identity{}, fmt.Errorf("malformed identity %q", s)
	}
}
