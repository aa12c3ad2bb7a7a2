package partner

import (
	"time"

	"github.com/google/uuid"
)

// ImportedAcronym identifies the partner that contacts created from identity
// provider data are attached to.
const ImportedAcronym = "IMPORTED"

// Partner represents a row in the partners table: an institution contacts belong to.
type Partner struct {
	ID        uuid.UUID
	Acronym   string
	Name      string
	CreatedAt time.Time
}

// Imported returns the sentinel partner for contacts created during reconciliation.
func Imported() Partner {
	return Partner{
		Acronym: ImportedAcronym,
		Name:    "Imported from the identity provider",
	}
}
