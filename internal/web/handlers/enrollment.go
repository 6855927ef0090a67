package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// EnrollmentHandler registers new identities from captured samples
type EnrollmentHandler struct {
	enrollment *attendance.Enrollment
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollment *attendance.Enrollment) *EnrollmentHandler {
	return &EnrollmentHandler{enrollment: enrollment}
}

// BeginResponse is returned when an enrollment starts
type BeginResponse struct {
	Pending attendance.PendingIdentity `json:"pending"`
	Capture attendance.CaptureStatus   `json:"capture"`
}

// Begin validates the identity, remembers it as pending and starts a capture
func (h *EnrollmentHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req attendance.PendingIdentity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	status, err := h.enrollment.Begin(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := BeginResponse{Capture: status}
	if pending := h.enrollment.Pending(); pending != nil {
		resp.Pending = *pending
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Get returns the pending identity
func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	pending := h.enrollment.Pending()
	if pending == nil {
		respondDomainError(w, r, attendance.ErrNoPendingIdentity)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

// Finalize stores the pending identity with the captured samples
func (h *EnrollmentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	result, err := h.enrollment.Finalize(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Cancel forgets the pending identity
func (h *EnrollmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.enrollment.Cancel()
	w.WriteHeader(http.StatusNoContent)
}
