package endpoint

import (
	"context"
	"errors"
)

// ErrDuplicateName is returned when an endpoint with the same name already exists.
var ErrDuplicateName = errors.New("endpoint name already exists")

// Repository provides operations on the endpoints table.
type Repository interface {
	Create(ctx context.Context, e *Endpoint) error
	FindByPrefix(ctx context.Context, prefix string) ([]Endpoint, error)
}
