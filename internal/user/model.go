package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table: a person with login capability.
type User struct {
	ID        uuid.UUID
	OIDCID    *string // external identity, unique when set
	Email     string
	FirstName string
	LastName  string
	Username  string
	APIKey    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOIDCID reports whether the user is already linked to an external identity.
func (u *User) HasOIDCID() bool {
	return u.OIDCID != nil && *u.OIDCID != ""
}
