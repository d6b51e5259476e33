package authz

import (
	"encoding/json"
	"net/http"

	"github.com/talentloop/talentsync/internal/models"
)

// RequireRole returns a middleware that admits requesters holding at
// least the required role tier. A request with no identity on the context
// is unauthenticated rather than forbidden.
func RequireRole(required models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := RolesFromRequest(r)
			if !ok {
				denyJSON(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !models.HasAtLeast(roles, required) {
				denyJSON(w, http.StatusForbidden, "requires at least the "+string(required)+" role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleHandler applies the role middleware inline when registering routes.
func RequireRoleHandler(required models.UserRole, next http.Handler) http.Handler {
	return RequireRole(required)(next)
}

func denyJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
