package mariadb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository provides MariaDB-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// identityFields excludes the samples blob from listings.
var identityFields = []string{"id", "name", "department", "semester", "section", "has_enrollment_data", "created_at", "updated_at"}

// GetIdentity retrieves an identity by id, returns nil if not found
func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	var row identityRow
	err := r.pool.session(ctx).Select(identityFields).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	identity := row.toStored()
	return &identity, nil
}

// ListIdentities returns all identities ordered by id
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	var rows []identityRow
	if err := r.pool.session(ctx).Select(identityFields).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	identities := make([]database.StoredIdentity, len(rows))
	for i := range rows {
		identities[i] = rows[i].toStored()
	}
	return identities, nil
}

// CountIdentities returns the total and enrolled identity counts
func (r *IdentityRepository) CountIdentities(ctx context.Context) (database.IdentityCounts, error) {
	var total, enrolled int64
	db := r.pool.session(ctx)
	if err := db.Model(&identityRow{}).Count(&total).Error; err != nil {
		return database.IdentityCounts{}, fmt.Errorf("count identities: %w", err)
	}
	if err := db.Model(&identityRow{}).Where("has_enrollment_data = ?", true).Count(&enrolled).Error; err != nil {
		return database.IdentityCounts{}, fmt.Errorf("count enrolled identities: %w", err)
	}
	return database.IdentityCounts{Total: int(total), Enrolled: int(enrolled)}, nil
}

// CreateIdentity inserts a new identity
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *database.StoredIdentity) error {
	row := identityRow{
		ID:         identity.ID,
		Name:       identity.Name,
		Department: identity.Department,
		Semester:   identity.Semester,
		Section:    identity.Section,
	}
	err := r.pool.session(ctx).Create(&row).Error
	if isDuplicate(err) {
		return fmt.Errorf("create identity %s: %w", identity.ID, database.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	identity.CreatedAt = row.CreatedAt
	identity.UpdatedAt = row.UpdatedAt
	return nil
}

// SaveSamples stores the encoded sample set and marks the identity as enrolled
func (r *IdentityRepository) SaveSamples(ctx context.Context, id string, data []byte) error {
	db := r.pool.session(ctx)

	// Verify the identity exists first (MySQL RowsAffected returns 0 when data is unchanged)
	var n int64
	if err := db.Model(&identityRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("save samples: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save samples: identity %s not found", id)
	}

	err := db.Model(&identityRow{}).Where("id = ?", id).Updates(map[string]any{
		"samples":             data,
		"has_enrollment_data": true,
	}).Error
	if err != nil {
		return fmt.Errorf("save samples: %w", err)
	}
	return nil
}

// ListEnrolledSamples returns the sample sets of enrolled identities ordered by id
func (r *IdentityRepository) ListEnrolledSamples(ctx context.Context) ([]database.EnrolledSamples, error) {
	var rows []identityRow
	err := r.pool.session(ctx).
		Select("id", "samples").
		Where("has_enrollment_data = ? AND samples IS NOT NULL", true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list enrolled samples: %w", err)
	}

	sets := make([]database.EnrolledSamples, len(rows))
	for i := range rows {
		sets[i] = database.EnrolledSamples{IdentityID: rows[i].ID, Data: rows[i].Samples}
	}
	return sets, nil
}

// DeleteAllIdentities removes every identity
func (r *IdentityRepository) DeleteAllIdentities(ctx context.Context) error {
	err := r.pool.session(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&identityRow{}).Error
	if err != nil {
		return fmt.Errorf("delete identities: %w", err)
	}
	return nil
}
