package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrContactNotFound is returned when a contact record is not found.
var ErrContactNotFound = errors.New("contact not found")

// Repository provides operations on the contacts table and its partner links.
type Repository interface {
	// Create inserts the contact and links it to every partner in c.PartnerIDs.
	Create(ctx context.Context, c *Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	ListByOIDCID(ctx context.Context, oidcID string) ([]Contact, error)
	ListByEmail(ctx context.Context, email string) ([]Contact, error)
	List(ctx context.Context) ([]Contact, error)
	// Update overwrites oidc_id, email, first_name and last_name.
	Update(ctx context.Context, c *Contact) error
}
