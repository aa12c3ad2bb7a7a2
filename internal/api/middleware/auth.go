package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daisy-gov/daisy/internal/api/response"
	"github.com/daisy-gov/daisy/internal/auth"
)

const identityKey contextKey = "identity"

// Authenticator resolves a raw API key to an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error)
}

// APIKey is middleware that reads the key from the X-API-Key header, or the
// API_KEY query parameter when the header is absent, and resolves it via the
// authenticator. Missing or unknown keys get 403.
func APIKey(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				rawKey = r.URL.Query().Get("API_KEY")
			}
			if rawKey == "" {
				response.Failed(w, http.StatusForbidden, "API key is required")
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidKey) {
					response.Failed(w, http.StatusForbidden, "API key is invalid")
					return
				}
				slog.Error("api key check failed", "error", err, "requestId", GetRequestID(r.Context()))
				response.Failed(w, http.StatusInternalServerError, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
