package contact

import (
	"time"

	"github.com/google/uuid"
)

// TypeOther is the contact type given to contacts created from identity provider data.
const TypeOther = "Other"

// Contact represents a row in the contacts table: a person referenced by
// datasets and projects who has no login.
type Contact struct {
	ID         uuid.UUID
	OIDCID     *string
	Email      string
	FirstName  string
	LastName   string
	Type       string
	PartnerIDs []uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasOIDCID reports whether the contact is already linked to an external identity.
func (c *Contact) HasOIDCID() bool {
	return c.OIDCID != nil && *c.OIDCID != ""
}
