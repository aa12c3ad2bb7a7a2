package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
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

// Create inserts a new dataset record.
func (r *PostgresRepository) Create(ctx context.Context, d *Dataset) error {
	query := `
		INSERT INTO datasets (accession, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, d.Accession, d.Title, d.Description).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccession
		}
		return fmt.Errorf("inserting dataset: %w", err)
	}

	return nil
}

// GetByAccession retrieves a single dataset by its public accession.
func (r *PostgresRepository) GetByAccession(ctx context.Context, accession string) (*Dataset, error) {
	query := `
		SELECT id, accession, title, description, created_at
		FROM datasets
		WHERE accession = $1`

	var d Dataset
	err := r.pool.QueryRow(ctx, query, accession).Scan(&d.ID, &d.Accession, &d.Title, &d.Description, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying dataset: %w", err)
	}

	return &d, nil
}

// List retrieves all datasets ordered by accession.
func (r *PostgresRepository) List(ctx context.Context) ([]Dataset, error) {
	query := `
		SELECT id, accession, title, description, created_at
		FROM datasets
		ORDER BY accession ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.Accession, &d.Title, &d.Description, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dataset row: %w", err)
		}
		datasets = append(datasets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dataset rows: %w", err)
	}

	if datasets == nil {
		datasets = []Dataset{}
	}

	return datasets, nil
}
