package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

var reportCmd = &cobra.Command{
	Use:   "report [date]",
	Short: "Print the attendance report of a day",
	Long: `Print the attendance of every enrolled identity on a day (YYYY-MM-DD,
today by default). Identities without a ledger row are listed as Absent.

Examples:
  face-attendance report
  face-attendance report 2024-03-01 --csv Attendance_Report_2024-03-01.csv
  face-attendance report 2024-03-01 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("csv", "", "Write the report as CSV to this file")
	reportCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date := a.ledger.DateOf(time.Now())
	if len(args) > 0 {
		date = args[0]
	}

	report, err := a.reports.Report(ctx, date)
	if err != nil {
		return err
	}

	if path := mustGetString(cmd, "csv"); path != "" {
		if err := writeReportCSV(path, report); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", path)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Attendance for %s\n\n", report.Date)
	fmt.Printf("%-10s %-24s %-8s %-9s %-9s %s\n", "ID", "NAME", "DEPT", "IN", "OUT", "STATUS")
	for _, row := range report.Rows {
		fmt.Printf("%-10s %-24s %-8s %-9s %-9s %s\n",
			row.IdentityID, row.Name, row.Department, row.InTime, row.OutTime, row.Status)
	}
	fmt.Printf("\n%s\n", report.Summary())
	return nil
}

func writeReportCSV(path string, report *attendance.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := attendance.WriteCSV(f, report); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
