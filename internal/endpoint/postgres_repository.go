package endpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new endpoint record.
func (r *PostgresRepository) Create(ctx context.Context, e *Endpoint) error {
	query := `
		INSERT INTO endpoints (name, key_prefix, key_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, e.Name, e.KeyPrefix, e.KeyHash).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting endpoint: %w", err)
	}

	return nil
}

// FindByPrefix returns endpoints whose key starts with the given prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]Endpoint, error) {
	query := `
		SELECT id, name, key_prefix, key_hash, created_at
		FROM endpoints
		WHERE key_prefix = $1`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding endpoints by prefix: %w", err)
	}
	defer rows.Close()

	var endpoints []Endpoint
	for rows.Next() {
		var e Endpoint
		if err := rows.Scan(&e.ID, &e.Name, &e.KeyPrefix, &e.KeyHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning endpoint row: %w", err)
		}
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoint rows: %w", err)
	}

	if endpoints == nil {
		endpoints = []Endpoint{}
	}

	return endpoints, nil
}
