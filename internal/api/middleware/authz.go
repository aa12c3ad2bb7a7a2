package middleware

import (
	"net/http"

	"github.com/daisy-gov/daisy/internal/api/response"
)

// RequireKind returns middleware that rejects identities whose key kind is
// not in the allowed list with 403.
func RequireKind(kinds ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Failed(w, http.StatusForbidden, "API key is required")
				return
			}

			if !allowed[identity.Kind] {
				response.Failed(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
