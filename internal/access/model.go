package access

import (
	"time"

	"github.com/google/uuid"
)

// Access grant statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Access represents a row in the accesses table: a recorded permission for
// exactly one user or contact to use a dataset until GrantExpiresOn.
type Access struct {
	ID                        uuid.UUID
	DatasetID                 uuid.UUID
	UserID                    *uuid.UUID
	ContactID                 *uuid.UUID
	Status                    string
	GrantedOn                 time.Time
	GrantExpiresOn            time.Time // date only, UTC midnight
	WasGeneratedAutomatically bool
	ApplicationID             *int64
	ApplicationExternalID     *string
	Notes                     string
	CreatedAt                 time.Time
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
