package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = `id, name, department, semester, section, has_enrollment_data, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var i database.StoredIdentity
	err := row.Scan(&i.ID, &i.Name, &i.Department, &i.Semester, &i.Section,
		&i.HasEnrollmentData, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// GetIdentity retrieves an identity by id, returns nil if not found
func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// ListIdentities returns all identities ordered by id
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// CountIdentities returns the total and enrolled identity counts
func (r *IdentityRepository) CountIdentities(ctx context.Context) (database.IdentityCounts, error) {
	var c database.IdentityCounts
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE has_enrollment_data)
		FROM identities
	`).Scan(&c.Total, &c.Enrolled)
	if err != nil {
		return c, fmt.Errorf("count identities: %w", err)
	}
	return c, nil
}

// CreateIdentity inserts a new identity
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *database.StoredIdentity) error {
	query := `
		INSERT INTO identities (id, name, department, semester, section)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	// QueryRow bypasses Pool.Exec, so translate the unique violation here too.
	err := r.pool.QueryRow(ctx, query, identity.ID, identity.Name, identity.Department,
		identity.Semester, identity.Section).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create identity %s: %w", identity.ID, database.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// SaveSamples stores the encoded sample set and marks the identity as enrolled
func (r *IdentityRepository) SaveSamples(ctx context.Context, id string, data []byte) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE identities
		SET samples = $2, has_enrollment_data = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id, data)
	if err != nil {
		return fmt.Errorf("save samples: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save samples: identity %s not found", id)
	}
	return nil
}

// ListEnrolledSamples returns the sample sets of enrolled identities ordered by id
func (r *IdentityRepository) ListEnrolledSamples(ctx context.Context) ([]database.EnrolledSamples, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, samples
		FROM identities
		WHERE has_enrollment_data AND samples IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list enrolled samples: %w", err)
	}
	defer rows.Close()

	var sets []database.EnrolledSamples
	for rows.Next() {
		var s database.EnrolledSamples
		if err := rows.Scan(&s.IdentityID, &s.Data); err != nil {
			return nil, fmt.Errorf("scan samples: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return sets, nil
}

// DeleteAllIdentities removes every identity
func (r *IdentityRepository) DeleteAllIdentities(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM identities"); err != nil {
		return fmt.Errorf("delete identities: %w", err)
	}
	return nil
}
