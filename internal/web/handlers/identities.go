package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentitiesHandler lists enrolled identities
type IdentitiesHandler struct {
	identities database.IdentityStore
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(identities database.IdentityStore) *IdentitiesHandler {
	return &IdentitiesHandler{identities: identities}
}

// IdentityResponse represents an identity in API responses
type IdentityResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Semester   string    `json:"semester,omitempty"`
	Section    string    `json:"section,omitempty"`
	Enrolled   bool      `json:"enrolled"`
	CreatedAt  time.Time `json:"created_at"`
}

func identityToResponse(i database.StoredIdentity) IdentityResponse {
	return IdentityResponse{
		ID:         i.ID,
		Name:       i.Name,
		Department: i.Department,
		Semester:   i.Semester,
		Section:    i.Section,
		Enrolled:   i.HasEnrollmentData,
		CreatedAt:  i.CreatedAt,
	}
}

// List returns every identity ordered by id
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.identities.ListIdentities(r.Context())
	if err != nil {
		respondDomainError(w, r, fmt.Errorf("listing identities: %w: %w", attendance.ErrStorage, err))
		return
	}

	result := make([]IdentityResponse, len(identities))
	for i, identity := range identities {
		result[i] = identityToResponse(identity)
	}
	respondJSON(w, http.StatusOK, result)
}
