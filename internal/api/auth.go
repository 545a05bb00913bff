package api

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the authenticated caller attached to each request. It is
// acquired by the bearer middleware and travels via the request context; no
// global session state exists.
type Principal struct {
	Token string
	Role  string
}

type principalKey struct{}

// PrincipalFrom returns the authenticated principal for a request, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator validates bearer tokens against a configured token→role map.
type Authenticator struct {
	tokens map[string]string
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens map[string]string) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Middleware rejects requests without a known bearer token. An expired or
// unknown token surfaces as a plain 401; there is no refresh flow.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeErrorStatus(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		role, known := a.tokens[token]
		if !known {
			writeErrorStatus(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, Principal{Token: token, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
