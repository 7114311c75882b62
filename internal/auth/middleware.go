// internal/auth/middleware.go
//
// Bearer-token middleware and the request Identity.
// Responsibilities:
//   - Parse "Authorization: Bearer <jwt>" and place the Identity on the context.
//   - Optional mode lets guests through; RequireAuth answers 401 instead.

package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity is the caller as seen by handlers. The zero value is a guest.
type Identity struct {
	UserID string `json:"userId,omitempty"`
}

// Authenticated reports whether the caller presented a valid token.
func (i Identity) Authenticated() bool { return i.UserID != "" }

// ctxUserKey is the context key type for storing the Identity.
type ctxUserKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, id)
}

// FromContext returns the Identity placed by the middleware (a guest if none).
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxUserKey{}).(Identity)
	return id
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// identify resolves the request's token into an Identity, checking that the
// account still exists.
func (s *Service) identify(r *http.Request) (Identity, error) {
	tok := BearerToken(r)
	if tok == "" {
		return Identity{}, ErrInvalidToken
	}
	id, err := s.Verify(tok)
	if err != nil {
		return Identity{}, err
	}
	if _, err := s.users.UserByID(r.Context(), id); err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id}, nil
}

// RequireAuth rejects requests without a valid bearer token.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if BearerToken(r) == "" {
			http.Error(w, `{"error":"No token provided"}`, http.StatusUnauthorized)
			return
		}
		id, err := s.identify(r)
		if err != nil {
			http.Error(w, `{"error":"Failed to authenticate token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

// OptionalAuth decorates requests with the Identity when a valid token is
// present and lets guests through otherwise. It never responds 401.
func (s *Service) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := s.identify(r); err == nil {
			r = r.WithContext(NewContext(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
