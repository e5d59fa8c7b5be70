package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campus-push/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// TokenVerifier turns a bearer token into the caller it identifies.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}

// Auth returns middleware that accepts a Bearer token any of the verifiers
// recognises and injects the principal into the context.
func Auth(verifiers ...TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			for _, v := range verifiers {
				p, err := v.Verify(r.Context(), tokenStr)
				if err != nil || p == nil {
					continue
				}
				ctx := context.WithValue(r.Context(), PrincipalKey, p)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
		})
	}
}

// PrincipalFromContext extracts the authenticated caller from the request context.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return p, ok
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}
