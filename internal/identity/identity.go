// Package identity defines the external account source used by the
// reconciliation engine and the variants it can be backed by.
package identity

import (
	"context"
	"errors"
	"log/slog"
)

// ErrAccountNotFound is returned by GetAccount when the provider has no
// account with the requested external id.
var ErrAccountNotFound = errors.New("external account not found")

// Account is a person as seen by the identity provider. It is never persisted.
type Account struct {
	ExternalID string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Username   string `json:"username,omitempty"`
}

// Source abstracts identity provider backends (Keycloak, static roster, etc.).
type Source interface {
	// Name identifies the backend; it keys the roster sync run lock.
	Name() string

	// ListAccounts returns the full roster. Accounts without an email are
	// dropped before returning. An empty roster is not an error.
	ListAccounts(ctx context.Context) ([]Account, error)

	// GetAccount fetches one account. It returns ErrAccountNotFound when the
	// provider does not know externalID.
	GetAccount(ctx context.Context, externalID string) (*Account, error)

	// CheckConnectivity reports whether the provider is reachable. It never fails.
	CheckConnectivity(ctx context.Context) bool
}

// FilterReconcilable drops accounts that carry no email, logging each one.
func FilterReconcilable(source string, accounts []Account) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Email == "" {
			slog.Warn("identity: skipping account without email",
				"source", source,
				"external_id", a.ExternalID,
			)
			continue
		}
		out = append(out, a)
	}
	return out
}
