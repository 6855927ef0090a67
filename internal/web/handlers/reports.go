package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// ReportsHandler serves daily attendance reports
type ReportsHandler struct {
	reports *attendance.Reports
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(reports *attendance.Reports) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// ReportResponse is a report with its summary line
type ReportResponse struct {
	*attendance.Report
	Summary string `json:"summary"`
}

// Get returns the report of the date in the URL
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Report(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ReportResponse{Report: report, Summary: report.Summary()})
}

// CSV returns the report of the date in the URL as a CSV download
func (h *ReportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Report(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, report); err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attendance.CSVFilename(report.Date)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
