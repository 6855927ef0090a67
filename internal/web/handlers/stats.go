package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	identities database.IdentityStore
	ledger     *attendance.Ledger
	live       *attendance.LiveArtifact
	now        func() time.Time
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(identities database.IdentityStore, ledger *attendance.Ledger, live *attendance.LiveArtifact) *StatsHandler {
	return &StatsHandler{
		identities: identities,
		ledger:     ledger,
		live:       live,
		now:        time.Now,
	}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	TotalIdentities int          `json:"total_identities"`
	Enrolled        int          `json:"enrolled"`
	PresentToday    int          `json:"present_today"`
	Date            string       `json:"date"`
	Classifier      ArtifactInfo `json:"classifier"`
}

// Get returns identity and attendance statistics
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.identities.CountIdentities(ctx)
	if err != nil {
		respondDomainError(w, r, fmt.Errorf("counting identities: %w: %w", attendance.ErrStorage, err))
		return
	}

	date := h.ledger.DateOf(h.now())
	present, err := h.ledger.CountForDate(ctx, date)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		TotalIdentities: counts.Total,
		Enrolled:        counts.Enrolled,
		PresentToday:    present,
		Date:            date,
		Classifier:      artifactInfo(h.live),
	})
}
