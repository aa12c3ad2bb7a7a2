package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidGrantee is returned when an access names both or neither of a user and a contact.
var ErrInvalidGrantee = errors.New("access must reference exactly one of user or contact")

// Repository provides operations on the accesses table.
type Repository interface {
	Create(ctx context.Context, a *Access) error
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]Access, error)
	// HasActiveAutomatic reports whether an automatically generated, active
	// grant exists for the dataset accession, the grantee holding oidcID, and
	// the given expiration date.
	HasActiveAutomatic(ctx context.Context, accession, oidcID string, expiresOn time.Time) (bool, error)
	// ExpireBefore moves every active grant with grant_expires_on < asOf to
	// expired and returns how many rows changed.
	ExpireBefore(ctx context.Context, asOf time.Time) (int64, error)
}

// ValidateGrantee checks the user XOR contact rule.
func ValidateGrantee(a *Access) error {
	if (a.UserID == nil) == (a.ContactID == nil) {
		return ErrInvalidGrantee
	}
	return nil
}
