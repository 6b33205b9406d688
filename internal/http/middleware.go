package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/identity"
)

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "request_id"
)

const sessionCookieName = "storefront_session"

// SessionMiddleware guarantees every request carries a session id. First
// visit mints one and sets the cookie; returning visitors keep theirs.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
			sessionID = c.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MockAuthMiddleware simulates JWT authentication (replace with real JWT
// validation). The authenticated user id is read from the X-User-ID header;
// an absent header means an anonymous visitor.
func MockAuthMiddleware(resolver *identity.Resolver, carts CartMerger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// In production: validate JWT token from Authorization header
			// and extract the user id from token claims.
			authUserID := r.Header.Get("X-User-ID")

			sessionID := getSessionID(r.Context())
			res, err := resolver.Resolve(r.Context(), sessionID, authUserID)
			if err != nil {
				log.Printf("failed to resolve identity: %v", err)
				respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			if res.JustAuthenticated {
				anon := domain.Identity{Value: res.PreviousAnonymous, Anonymous: true}
				if err := carts.MergeOnLogin(r.Context(), anon.String(), res.Identity.String()); err != nil {
					// The transition is not consumed: the session still
					// holds the anonymous token, so the next request
					// resolves the same transition and retries the merge.
					log.Printf("failed to merge cart on login: %v", err)
				} else if err := resolver.CompleteLogin(r.Context(), sessionID, res.Identity); err != nil {
					log.Printf("failed to complete login for session: %v", err)
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, res.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

func getIdentity(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(identityKey).(domain.Identity); ok {
		return id
	}
	return domain.Identity{}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
