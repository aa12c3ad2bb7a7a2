package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

// GetByID retrieves a single partner by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Partner, error) {
	query := `
		SELECT id, acronym, name, created_at
		FROM partners
		WHERE id = $1`

	return r.scanOne(ctx, query, id)
}

// GetByAcronym retrieves a single partner by its acronym.
func (r *PostgresRepository) GetByAcronym(ctx context.Context, acronym string) (*Partner, error) {
	query := `
		SELECT id, acronym, name, created_at
		FROM partners
		WHERE acronym = $1`

	return r.scanOne(ctx, query, acronym)
}

// Ensure inserts the partner unless one with the same acronym exists, and
// returns the stored row either way.
func (r *PostgresRepository) Ensure(ctx context.Context, p Partner) (*Partner, error) {
	query := `
		INSERT INTO partners (acronym, name)
		VALUES ($1, $2)
		ON CONFLICT (acronym) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, p.Acronym, p.Name); err != nil {
		return nil, fmt.Errorf("inserting partner: %w", err)
	}

	return r.GetByAcronym(ctx, p.Acronym)
}

// List retrieves all partners ordered by acronym.
func (r *PostgresRepository) List(ctx context.Context) ([]Partner, error) {
	query := `
		SELECT id, acronym, name, created_at
		FROM partners
		ORDER BY acronym ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Acronym, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning partner row: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating partner rows: %w", err)
	}

	if partners == nil {
		partners = []Partner{}
	}

	return partners, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Partner, error) {
	var p Partner
	err := r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Acronym, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPartnerNotFound
		}
		return nil, fmt.Errorf("querying partner: %w", err)
	}
	return &p, nil
}
