package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// Create inserts a new access grant.
func (r *PostgresRepository) Create(ctx context.Context, a *Access) error {
	if err := ValidateGrantee(a); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.GrantedOn.IsZero() {
		a.GrantedOn = time.Now().UTC()
	}

	query := `
		INSERT INTO accesses (dataset_id, user_id, contact_id, status, granted_on, grant_expires_on,
		                      was_generated_automatically, application_id, application_external_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		a.DatasetID,
		a.UserID,
		a.ContactID,
		a.Status,
		a.GrantedOn,
		Date(a.GrantExpiresOn),
		a.WasGeneratedAutomatically,
		a.ApplicationID,
		a.ApplicationExternalID,
		a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting access: %w", err)
	}

	return nil
}

// ListByDataset retrieves the grants of one dataset, newest first.
func (r *PostgresRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]Access, error) {
	query := `
		SELECT id, dataset_id, user_id, contact_id, status, granted_on, grant_expires_on,
		       was_generated_automatically, application_id, application_external_id, notes, created_at
		FROM accesses
		WHERE dataset_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("listing accesses: %w", err)
	}
	defer rows.Close()

	var accesses []Access
	for rows.Next() {
		var a Access
		err := rows.Scan(
			&a.ID, &a.DatasetID, &a.UserID, &a.ContactID, &a.Status, &a.GrantedOn, &a.GrantExpiresOn,
			&a.WasGeneratedAutomatically, &a.ApplicationID, &a.ApplicationExternalID, &a.Notes, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning access row: %w", err)
		}
		accesses = append(accesses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access rows: %w", err)
	}

	if accesses == nil {
		accesses = []Access{}
	}

	return accesses, nil
}

// HasActiveAutomatic checks for an existing automatically generated grant
// matching dataset accession, grantee external identity and expiration date.
func (r *PostgresRepository) HasActiveAutomatic(ctx context.Context, accession, oidcID string, expiresOn time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM accesses a
			JOIN datasets d ON d.id = a.dataset_id
			LEFT JOIN users u ON u.id = a.user_id
			LEFT JOIN contacts c ON c.id = a.contact_id
			WHERE d.accession = $1
			  AND (u.oidc_id = $2 OR c.oidc_id = $2)
			  AND a.grant_expires_on = $3
			  AND a.status = 'active'
			  AND a.was_generated_automatically
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, accession, oidcID, Date(expiresOn)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking existing access: %w", err)
	}
	return exists, nil
}

// ExpireBefore marks overdue active grants as expired.
func (r *PostgresRepository) ExpireBefore(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE accesses
		SET status = 'expired'
		WHERE status = 'active' AND grant_expires_on < $1`

	result, err := r.pool.Exec(ctx, query, Date(asOf))
	if err != nil {
		return 0, fmt.Errorf("expiring accesses: %w", err)
	}

	return result.RowsAffected(), nil
}
