package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const selectColumns = `id, owner_id, title, description, file_url, file_name, file_size, created_at, updated_at`

// Repository provides access to certificate records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new certificate repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a record owned by ownerID.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, in NewCertificate) (Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO certificates (owner_id, title, description, file_url, file_name, file_size)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + selectColumns + `;`

	row := r.pool.QueryRow(ctx, query, ownerID, in.Title, in.Description, in.FileURL, in.FileName, in.FileSize)

	stored, err := scanCertificate(row)
	if err != nil {
		return Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	return stored, nil
}

// List returns the owner's certificates, newest first.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + selectColumns + `
FROM certificates
WHERE owner_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	certs := []Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certs, nil
}

// Update applies a metadata edit to a record owned by ownerID.
func (r *Repository) Update(ctx context.Context, ownerID, id uuid.UUID, changes Changes) (Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE certificates
SET title = $3, description = $4, updated_at = $5
WHERE id = $1 AND owner_id = $2
RETURNING ` + selectColumns + `;`

	cert, err := scanCertificate(r.pool.QueryRow(ctx, query, id, ownerID, changes.Title, changes.Description, changes.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Certificate{}, ErrCertificateNotFound
		}
		return Certificate{}, fmt.Errorf("update certificate: %w", err)
	}
	return cert, nil
}

// Delete removes a record and returns it.
func (r *Repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM certificates
WHERE id = $1 AND owner_id = $2
RETURNING ` + selectColumns + `;`

	cert, err := scanCertificate(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Certificate{}, ErrCertificateNotFound
		}
		return Certificate{}, fmt.Errorf("delete certificate: %w", err)
	}
	return cert, nil
}

func scanCertificate(row pgx.Row) (Certificate, error) {
	var c Certificate
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Description,
		&c.FileURL,
		&c.FileName,
		&c.FileSize,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
