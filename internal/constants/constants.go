// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Date and time layouts
const (
	// DateLayout is the layout of ledger dates and report requests
	DateLayout = "2006-01-02"

	// TimeLayout is the layout of in/out times in reports
	TimeLayout = "15:04:05"

	// AbsentPlaceholder is shown instead of a time when an identity has no ledger row
	AbsentPlaceholder = "-"
)

// Report status values
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Frame processing constants
const (
	// JPEGQuality is used for annotated frames, sample backups and unknown crops
	JPEGQuality = 85

	// MaxFrameSize is the maximum accepted upload size of a single frame (10MB)
	MaxFrameSize = 10 << 20
)
