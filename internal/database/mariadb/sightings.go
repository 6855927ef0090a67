package mariadb

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// SightingRepository provides MariaDB-backed unknown sighting storage
type SightingRepository struct {
	pool *Pool
}

// AddSighting appends a sighting and fills in its ID
func (r *SightingRepository) AddSighting(ctx context.Context, s *database.Sighting) error {
	row := sightingRow{ImagePath: s.ImagePath, DetectedAt: s.DetectedAt}
	if err := r.pool.session(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("add sighting: %w", err)
	}
	s.ID = row.ID
	return nil
}

// ListSightings returns the latest sightings, newest first
func (r *SightingRepository) ListSightings(ctx context.Context, limit int) ([]database.Sighting, error) {
	var rows []sightingRow
	err := r.pool.session(ctx).Order("detected_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}

	sightings := make([]database.Sighting, len(rows))
	for i, row := range rows {
		sightings[i] = database.Sighting{ID: row.ID, ImagePath: row.ImagePath, DetectedAt: row.DetectedAt}
	}
	return sightings, nil
}

// DeleteAllSightings removes every sighting
func (r *SightingRepository) DeleteAllSightings(ctx context.Context) error {
	err := r.pool.session(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sightingRow{}).Error
	if err != nil {
		return fmt.Errorf("delete sightings: %w", err)
	}
	return nil
}
