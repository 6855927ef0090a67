package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ReportRow is the presence record of one identity.
type ReportRow struct {
	IdentityID string `json:"student_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	InTime     string `json:"in_time"`
	OutTime    string `json:"out_time"`
	Status     string `json:"status"`
}

// Report lists every identity with its presence on one day.
type Report struct {
	Date    string      `json:"date"`
	Rows    []ReportRow `json:"rows"`
	Present int         `json:"present"`
	Total   int         `json:"total"`
}

// Summary returns a one-line description of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d Present out of %d Registered", r.Present, r.Total)
}

// Reports joins identities against the ledger.
type Reports struct {
	identities database.IdentityStore
	ledger     *Ledger
}

// NewReports creates a report assembler.
func NewReports(identities database.IdentityStore, ledger *Ledger) *Reports {
	return &Reports{identities: identities, ledger: ledger}
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(date string) (string, error) {
	t, err := time.Parse(constants.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Format(constants.DateLayout), nil
}

// Report builds the report for date. Identities are ordered by id and none
// is omitted: those without a ledger row are Absent.
func (r *Reports) Report(ctx context.Context, date string) (*Report, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	identities, err := r.identities.ListIdentities(ctx)
	if err != nil {
		return nil, storageError("listing identities", err)
	}
	seen, err := r.ledger.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &Report{Date: date, Rows: make([]ReportRow, 0, len(identities)), Total: len(identities)}
	loc := r.ledger.Location()
	for _, identity := range identities {
		row := ReportRow{
			IdentityID: identity.ID,
			Name:       identity.Name,
			Department: identity.Department,
			InTime:     constants.AbsentPlaceholder,
			OutTime:    constants.AbsentPlaceholder,
			Status:     constants.StatusAbsent,
		}
		if s, ok := seen[identity.ID]; ok {
			row.InTime = s.In.In(loc).Format(constants.TimeLayout)
			row.OutTime = s.Out.In(loc).Format(constants.TimeLayout)
			row.Status = constants.StatusPresent
			report.Present++
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

var csvHeader = []string{"Student ID", "Name", "Department", "In Time", "Out Time", "Status"}

// WriteCSV writes the report rows with a header line.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, row := range report.Rows {
		record := []string{row.IdentityID, row.Name, row.Department, row.InTime, row.OutTime, row.Status}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

// CSVFilename returns the download name of the report for date.
func CSVFilename(date string) string {
	return fmt.Sprintf("Attendance_Report_%s.csv", date)
}
