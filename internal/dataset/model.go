package dataset

import (
	"time"

	"github.com/google/uuid"
)

// Dataset represents a row in the datasets table.
type Dataset struct {
	ID          uuid.UUID
	Accession   string // public accession, e.g. "ELU_I_42"
	Title       string
	Description string
	CreatedAt   time.Time
}
