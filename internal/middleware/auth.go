package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"placedir/internal/claims"
	"placedir/internal/domain"
)

// Authenticator resolves the caller from a Bearer token and stores it in the
// request context. Requests without an Authorization header pass through
// anonymously; the policy engine decides what anonymity may do. A present but
// invalid token is rejected outright with 401.
func Authenticator(validator JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "authorization header must be a Bearer token")
				return
			}

			parsed, err := validator.Validate(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil || parsed.Subject == "" {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			caller := domain.Caller{UID: parsed.Subject}
			if bundle, ok := claims.FromRaw(parsed.Raw); ok {
				caller.Role = bundle.Role
				caller.ScopeRef = bundle.ScopeRef
			} else {
				// Verified identity with no (or an unrecognized) role claim:
				// an account the bootstrap handler has not converged yet.
				// It gets the floor role, never a forged one.
				caller.Role = domain.RoleStandardUser
			}

			ctx := domain.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
