package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `
		SELECT c.id, c.oidc_id, c.email, c.first_name, c.last_name, c.type,
		       COALESCE(ARRAY_AGG(cp.partner_id) FILTER (WHERE cp.partner_id IS NOT NULL), '{}'),
		       c.created_at, c.updated_at
		FROM contacts c
		LEFT JOIN contact_partners cp ON cp.contact_id = c.id`

const groupBy = ` GROUP BY c.id`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new contact and its partner links in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, c *Contact) error {
	if c.Type == "" {
		c.Type = TypeOther
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO contacts (oidc_id, email, first_name, last_name, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		c.OIDCID,
		c.Email,
		c.FirstName,
		c.LastName,
		c.Type,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}

	for _, partnerID := range c.PartnerIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO contact_partners (contact_id, partner_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, partnerID,
		)
		if err != nil {
			return fmt.Errorf("linking contact to partner: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing contact: %w", err)
	}

	return nil
}

// GetByID retrieves a single contact by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Contact, error) {
	contacts, err := r.scanMany(ctx, selectColumns+` WHERE c.id = $1`+groupBy, id)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrContactNotFound
	}
	return &contacts[0], nil
}

// ListByOIDCID returns contacts whose oidc_id equals the given value.
func (r *PostgresRepository) ListByOIDCID(ctx context.Context, oidcID string) ([]Contact, error) {
	return r.scanMany(ctx, selectColumns+` WHERE c.oidc_id = $1`+groupBy+` ORDER BY c.created_at ASC`, oidcID)
}

// ListByEmail returns contacts whose email equals the given value.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]Contact, error) {
	return r.scanMany(ctx, selectColumns+` WHERE c.email = $1`+groupBy+` ORDER BY c.created_at ASC`, email)
}

// List retrieves all contacts ordered by last name.
func (r *PostgresRepository) List(ctx context.Context) ([]Contact, error) {
	return r.scanMany(ctx, selectColumns+groupBy+` ORDER BY c.last_name ASC, c.first_name ASC`)
}

// Update overwrites the identity-provider managed fields of a contact.
func (r *PostgresRepository) Update(ctx context.Context, c *Contact) error {
	query := `
		UPDATE contacts
		SET oidc_id = $1, email = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, c.OIDCID, c.Email, c.FirstName, c.LastName, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrContactNotFound
		}
		return fmt.Errorf("updating contact: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanMany(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		err := rows.Scan(
			&c.ID, &c.OIDCID, &c.Email, &c.FirstName, &c.LastName, &c.Type,
			&c.PartnerIDs, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contact rows: %w", err)
	}

	if contacts == nil {
		contacts = []Contact{}
	}

	return contacts, nil
}
