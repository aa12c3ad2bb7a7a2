package dataset

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a dataset record is not found.
var ErrNotFound = errors.New("dataset not found")

// ErrDuplicateAccession is returned when a dataset with the same accession already exists.
var ErrDuplicateAccession = errors.New("dataset accession already exists")

// Repository provides operations on the datasets table.
type Repository interface {
	Create(ctx context.Context, d *Dataset) error
	GetByAccession(ctx context.Context, accession string) (*Dataset, error)
	List(ctx context.Context) ([]Dataset, error)
}
