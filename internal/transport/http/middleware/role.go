package middleware

import (
	"net/http"
	"slices"
)

// RequireRole returns middleware that allows access only to callers whose
// role matches one of the provided role names (e.g. domain.RoleAdmin).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(allowedRoles, p.Role) {
				writeJSONError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
