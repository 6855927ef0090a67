package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// SightingRepository provides PostgreSQL-backed unknown sighting storage
type SightingRepository struct {
	pool *Pool
}

// NewSightingRepository creates a new PostgreSQL sighting repository
func NewSightingRepository(pool *Pool) *SightingRepository {
	return &SightingRepository{pool: pool}
}

// AddSighting appends a sighting and fills in its ID
func (r *SightingRepository) AddSighting(ctx context.Context, s *database.Sighting) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO unknown_sightings (image_path, detected_at)
		VALUES ($1, $2)
		RETURNING id
	`, s.ImagePath, s.DetectedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("add sighting: %w", err)
	}
	return nil
}

// ListSightings returns the latest sightings, newest first
func (r *SightingRepository) ListSightings(ctx context.Context, limit int) ([]database.Sighting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, image_path, detected_at
		FROM unknown_sightings
		ORDER BY detected_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}
	defer rows.Close()

	var sightings []database.Sighting
	for rows.Next() {
		var s database.Sighting
		if err := rows.Scan(&s.ID, &s.ImagePath, &s.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}
	return sightings, nil
}

// DeleteAllSightings removes every sighting
func (r *SightingRepository) DeleteAllSightings(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM unknown_sightings"); err != nil {
		return fmt.Errorf("delete sightings: %w", err)
	}
	return nil
}
