package database

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// IdentityStore provides access to enrolled identities and their sample sets
type IdentityStore interface {
	// GetIdentity retrieves an identity by id, returns nil if not found
	GetIdentity(ctx context.Context, id string) (*StoredIdentity, error)
	// ListIdentities returns all identities ordered by id
	ListIdentities(ctx context.Context) ([]StoredIdentity, error)
	// CountIdentities returns the total and enrolled identity counts
	CountIdentities(ctx context.Context) (IdentityCounts, error)
	// CreateIdentity inserts a new identity, returns ErrDuplicate if the id exists
	CreateIdentity(ctx context.Context, identity *StoredIdentity) error
	// SaveSamples stores the encoded sample set and marks the identity as enrolled
	SaveSamples(ctx context.Context, id string, data []byte) error
	// ListEnrolledSamples returns the sample sets of enrolled identities ordered by id
	ListEnrolledSamples(ctx context.Context) ([]EnrolledSamples, error)
	// DeleteAllIdentities removes every identity
	DeleteAllIdentities(ctx context.Context) error
}

// LedgerStore provides access to attendance rows
type LedgerStore interface {
	// FindEntry returns the row for the key, or nil if there is none
	FindEntry(ctx context.Context, identityID, date, course string) (*LedgerEntry, error)
	// InsertEntry creates a row, returns ErrDuplicate if the key exists
	InsertEntry(ctx context.Context, entry *LedgerEntry) error
	// TouchEntry updates LastSeen of an existing row
	TouchEntry(ctx context.Context, identityID, date, course string, lastSeen time.Time) error
	// EntriesForDate returns all rows of a day, most recently seen first
	EntriesForDate(ctx context.Context, date string) ([]LedgerEntry, error)
	// CountForDate returns the number of distinct identities seen on a day
	CountForDate(ctx context.Context, date string) (int, error)
	// DeleteAllEntries removes every attendance row
	DeleteAllEntries(ctx context.Context) error
}

// SightingStore provides append-only access to unknown sightings
type SightingStore interface {
	// AddSighting appends a sighting and fills in its ID
	AddSighting(ctx context.Context, sighting *Sighting) error
	// ListSightings returns the latest sightings, newest first
	ListSightings(ctx context.Context, limit int) ([]Sighting, error)
	// DeleteAllSightings removes every sighting
	DeleteAllSightings(ctx context.Context) error
}

// Backend bundles every store of one database
type Backend interface {
	IdentityStore
	LedgerStore
	SightingStore

	Ping(ctx context.Context) error
	Close() error
}
