package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AdminHandler performs bulk resets
type AdminHandler struct {
	admin *attendance.Admin
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *attendance.Admin) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Reset wipes the data named by the {scope} URL parameter: all, identities
// or attendance
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")

	var err error
	switch scope {
	case "all":
		err = h.admin.ResetAll(r.Context())
	case "identities":
		err = h.admin.ResetIdentities(r.Context())
	case "attendance":
		err = h.admin.ResetAttendance(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "unknown reset scope")
		return
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	username := ""
	if claims := middleware.GetAdminFromContext(r.Context()); claims != nil {
		username = claims.Username
	}
	log.Printf("reset %s by %s", scope, sanitizeForLog(username))
	respondJSON(w, http.StatusOK, map[string]any{"reset": scope, "success": true})
}
