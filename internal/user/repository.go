package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when a unique column (oidc_id, username, api_key) collides.
var ErrDuplicateUser = errors.New("user already exists")

// Repository provides operations on the users table.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*User, error)
	// ListByOIDCID returns every user holding the given external identity.
	ListByOIDCID(ctx context.Context, oidcID string) ([]User, error)
	// ListByEmail returns every user with the given email, linked or not.
	ListByEmail(ctx context.Context, email string) ([]User, error)
	List(ctx context.Context) ([]User, error)
	// Update overwrites oidc_id, email, first_name and last_name.
	Update(ctx context.Context, u *User) error
}
