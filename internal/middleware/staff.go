package middleware

import (
	"context"
	"net/http"
)

type StaffStore interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RequireRole gates staff endpoints. Any of the listed roles grants access,
// so admin-or-accountant surfaces take both in one middleware.
func RequireRole(staffStore StaffStore, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				hasRole, err := staffStore.HasRole(r.Context(), userID, role)
				if err != nil {
					http.Error(w, "unable to verify role", http.StatusInternalServerError)
					return
				}
				if hasRole {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "missing required role", http.StatusForbidden)
		})
	}
}
