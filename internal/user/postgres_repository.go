package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `
		SELECT id, oidc_id, email, first_name, last_name, username, api_key,
		       created_at, updated_at
		FROM users`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (oidc_id, email, first_name, last_name, username, api_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		u.OIDCID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Username,
		u.APIKey,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(ctx, selectColumns+` WHERE id = $1`, id)
}

// GetByAPIKey retrieves the user owning the given personal API key.
func (r *PostgresRepository) GetByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	return r.scanOne(ctx, selectColumns+` WHERE api_key = $1`, apiKey)
}

// ListByOIDCID returns users whose oidc_id equals the given value.
func (r *PostgresRepository) ListByOIDCID(ctx context.Context, oidcID string) ([]User, error) {
	return r.scanMany(ctx, selectColumns+` WHERE oidc_id = $1 ORDER BY created_at ASC`, oidcID)
}

// ListByEmail returns users whose email equals the given value.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]User, error) {
	return r.scanMany(ctx, selectColumns+` WHERE email = $1 ORDER BY created_at ASC`, email)
}

// List retrieves all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	return r.scanMany(ctx, selectColumns+` ORDER BY created_at ASC`)
}

// Update overwrites the identity-provider managed fields of a user.
func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET oidc_id = $1, email = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, u.OIDCID, u.Email, u.FirstName, u.LastName, u.ID).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("updating user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.OIDCID, &u.Email, &u.FirstName, &u.LastName,
		&u.Username, &u.APIKey, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) scanMany(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.OIDCID, &u.Email, &u.FirstName, &u.LastName,
			&u.Username, &u.APIKey, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	if users == nil {
		users = []User{}
	}

	return users, nil
}
