package identity

import "context"

// NoopName is the name of the Noop source.
const NoopName = "none"

// Noop is the Source used when identity provider integration is disabled:
// the roster is empty, every lookup misses and connectivity is false.
type Noop struct{}

func (Noop) Name() string { return NoopName }

func (Noop) ListAccounts(context.Context) ([]Account, error) {
	return []Account{}, nil
}

func (Noop) GetAccount(context.Context, string) (*Account, error) {
	return nil, ErrAccountNotFound
}

func (Noop) CheckConnectivity(context.Context) bool { return false }
