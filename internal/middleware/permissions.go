package middleware

import (
	"net/http"

	"github.com/technosupport/fleetwatch/internal/data"
)

// roleRank orders roles for the minimum-role check. Unknown roles rank below
// viewer.
func roleRank(role string) int {
	switch data.UserRole(role) {
	case data.RoleAdmin:
		return 3
	case data.RoleOperator:
		return 2
	case data.RoleViewer:
		return 1
	default:
		return 0
	}
}

// RequireRole rejects requests whose authenticated role ranks below min.
// It must run after JWTAuth.
func RequireRole(min data.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := GetAuthContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if roleRank(ac.Role) < roleRank(string(min)) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
