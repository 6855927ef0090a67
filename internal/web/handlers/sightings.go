package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// SightingsHandler lists faces that could not be matched
type SightingsHandler struct {
	sightings database.SightingStore
}

// NewSightingsHandler creates a new sightings handler
func NewSightingsHandler(sightings database.SightingStore) *SightingsHandler {
	return &SightingsHandler{sightings: sightings}
}

// SightingResponse represents an unknown sighting in API responses
type SightingResponse struct {
	ID         int64     `json:"id"`
	ImagePath  string    `json:"image_path"`
	DetectedAt time.Time `json:"detected_at"`
}

// List returns the latest sightings, newest first. The count is limited by
// the "limit" query parameter.
func (h *SightingsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultSightingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sightings, err := h.sightings.ListSightings(r.Context(), limit)
	if err != nil {
		respondDomainError(w, r, fmt.Errorf("listing sightings: %w: %w", attendance.ErrStorage, err))
		return
	}

	result := make([]SightingResponse, len(sightings))
	for i, s := range sightings {
		result[i] = SightingResponse{ID: s.ID, ImagePath: s.ImagePath, DetectedAt: s.DetectedAt}
	}
	respondJSON(w, http.StatusOK, result)
}
