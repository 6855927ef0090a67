package database

import (
	"time"
)

// StoredIdentity represents an enrolled person stored in the database
type StoredIdentity struct {
	ID                string
	Name              string
	Department        string
	Semester          string
	Section           string
	HasEnrollmentData bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EnrolledSamples is the encoded sample set of one identity
type EnrolledSamples struct {
	IdentityID string
	Data       []byte
}

// LedgerEntry is one attendance row, keyed by (IdentityID, Date, Course).
// Name and Department are copied from the identity when the row is created
// so the ledger survives identity resets.
type LedgerEntry struct {
	IdentityID string
	Name       string
	Department string
	Course     string
	Date       string // YYYY-MM-DD
	CreatedAt  time.Time
	LastSeen   time.Time
}

// Sighting records a face that could not be matched to anyone
type Sighting struct {
	ID         int64
	ImagePath  string
	DetectedAt time.Time
}

// IdentityCounts holds aggregate identity statistics
type IdentityCounts struct {
	Total    int
	Enrolled int
}
