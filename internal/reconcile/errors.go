package reconcile

import (
	"errors"
	"fmt"

	"github.com/daisy-gov/daisy/internal/identity"
)

var (
	// ErrExternalNotFound is returned when the identity provider has no
	// account for the requested external id.
	ErrExternalNotFound = identity.ErrAccountNotFound

	// ErrInconsistentState is returned when the local store violates the
	// uniqueness rules for oidc_id or email. It is never resolved automatically.
	ErrInconsistentState = errors.New("inconsistent local state")

	// ErrNotFound is returned when no local record matches and creation was
	// not requested.
	ErrNotFound = errors.New("no matching local record")

	// ErrSyncInProgress is returned when another roster sync for the same
	// source holds the run lock.
	ErrSyncInProgress = errors.New("roster sync already in progress")
)

// Keys reported by InconsistentStateError.
const (
	KeyOIDCID = "oidc_id"
	KeyEmail  = "email"
)

// InconsistentStateError describes which key matched too many records, or
// matched a record already linked to another identity.
type InconsistentStateError struct {
	Key     string
	Value   string
	Matches int
	// LinkedTo is set when an email match is already linked to a different oidc_id.
	LinkedTo string
}

func (e *InconsistentStateError) Error() string {
	if e.LinkedTo != "" {
		return fmt.Sprintf("%s: record with %s=%q is linked to oidc_id %q",
			ErrInconsistentState, e.Key, e.Value, e.LinkedTo)
	}
	return fmt.Sprintf("%s: %d records match %s=%q", ErrInconsistentState, e.Matches, e.Key, e.Value)
}

func (e *InconsistentStateError) Unwrap() error {
	return ErrInconsistentState
}
