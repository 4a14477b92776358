package middleware

import (
	"net/http"

	"companyms/internal/domain/auth"
	"companyms/internal/transport/http/api"
)

// RequireAuthenticated rejects requests without a principal.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipal(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a route to the given roles, composed with OR
// semantics: any listed role passes. Unauthenticated requests get 401,
// authenticated principals with the wrong role get 403.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return RequirePermission(func(role auth.Role) bool {
		for _, allowed := range roles {
			if role == allowed {
				return true
			}
		}
		return false
	})
}

// RequirePermission gates a route on one of the authorization predicates
// from the auth package, so the permission matrix lives in exactly one
// place. Unauthenticated requests get 401, denied principals get 403.
func RequirePermission(allowed func(auth.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !allowed(p.Role) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
