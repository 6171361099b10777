package middleware

import (
	"net/http"
	"slices"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
)

// Roles carried in X-Actor-Roles.
const (
	RoleAdmin     = "admin"
	RoleReception = "reception"
)

// RequireRole restricts a route to callers holding one of roles. It must
// run after Tenant.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := tenant.Current(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authorization required")
				return
			}
			if !slices.ContainsFunc(roles, c.HasRole) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
