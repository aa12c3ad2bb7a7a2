package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPartnerNotFound is returned when a partner record is not found.
var ErrPartnerNotFound = errors.New("partner not found")

// Repository provides operations on the partners table.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Partner, error)
	GetByAcronym(ctx context.Context, acronym string) (*Partner, error)
	// Ensure returns the partner with p's acronym, inserting p when none exists.
	Ensure(ctx context.Context, p Partner) (*Partner, error)
	List(ctx context.Context) ([]Partner, error)
}
