package chi

import (
	"net/http"
	"strings"
)

// DeskAuthMiddleware guards desk-only routes with Bearer desk keys.
// If deskKeys is empty, the guard is disabled (pass-through).
func DeskAuthMiddleware(deskKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(deskKeys))
	for _, k := range deskKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			if _, ok := validKeys[token]; !ok {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid desk key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
