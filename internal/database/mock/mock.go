// Package mock provides an in-memory implementation of database.Backend for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

type ledgerKey struct {
	identityID, date, course string
}

// MockBackend is an in-memory database.Backend
type MockBackend struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity
	samples    map[string][]byte
	entries    map[ledgerKey]*database.LedgerEntry
	sightings  []database.Sighting
	nextID     int64
	closed     bool

	// Error injection
	GetIdentityError    error
	ListIdentitiesError error
	CountError          error
	CreateIdentityError error
	SaveSamplesError    error
	ListSamplesError    error
	FindEntryError      error
	InsertEntryError    error
	TouchEntryError     error
	EntriesError        error
	AddSightingError    error
	ListSightingsError  error
	DeleteError         error
	PingError           error

	// OnInsertEntry runs before every InsertEntry, outside the lock.
	// Tests use it to simulate a concurrent writer.
	OnInsertEntry func(entry *database.LedgerEntry)
}

// NewMockBackend creates a new empty mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		identities: make(map[string]*database.StoredIdentity),
		samples:    make(map[string][]byte),
		entries:    make(map[ledgerKey]*database.LedgerEntry),
	}
}

// AddIdentity seeds an identity, optionally with encoded samples
func (m *MockBackend) AddIdentity(identity database.StoredIdentity, samples []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if samples != nil {
		m.samples[identity.ID] = samples
		identity.HasEnrollmentData = true
	}
	m.identities[identity.ID] = &identity
}

// Entries returns a snapshot of all ledger rows
func (m *MockBackend) Entries() []database.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out
}

// Sightings returns a snapshot of all sightings in insertion order
func (m *MockBackend) Sightings() []database.Sighting {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.Sighting(nil), m.sightings...)
}

// Closed reports whether Close was called
func (m *MockBackend) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// GetIdentity retrieves an identity by id
func (m *MockBackend) GetIdentity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	c := *identity
	return &c, nil
}

// ListIdentities returns all identities ordered by id
func (m *MockBackend) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListIdentitiesError != nil {
		return nil, m.ListIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		out = append(out, *identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountIdentities returns the total and enrolled identity counts
func (m *MockBackend) CountIdentities(ctx context.Context) (database.IdentityCounts, error) {
	if m.CountError != nil {
		return database.IdentityCounts{}, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := database.IdentityCounts{Total: len(m.identities)}
	for _, identity := range m.identities {
		if identity.HasEnrollmentData {
			c.Enrolled++
		}
	}
	return c, nil
}

// CreateIdentity inserts a new identity
func (m *MockBackend) CreateIdentity(ctx context.Context, identity *database.StoredIdentity) error {
	if m.CreateIdentityError != nil {
		return m.CreateIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.ID]; ok {
		return fmt.Errorf("create identity %s: %w", identity.ID, database.ErrDuplicate)
	}
	now := time.Now()
	identity.CreatedAt, identity.UpdatedAt = now, now
	c := *identity
	c.HasEnrollmentData = false
	m.identities[identity.ID] = &c
	return nil
}

// SaveSamples stores the encoded sample set and marks the identity as enrolled
func (m *MockBackend) SaveSamples(ctx context.Context, id string, data []byte) error {
	if m.SaveSamplesError != nil {
		return m.SaveSamplesError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return fmt.Errorf("save samples: identity %s not found", id)
	}
	m.samples[id] = append([]byte(nil), data...)
	identity.HasEnrollmentData = true
	identity.UpdatedAt = time.Now()
	return nil
}

// ListEnrolledSamples returns the sample sets of enrolled identities ordered by id
func (m *MockBackend) ListEnrolledSamples(ctx context.Context) ([]database.EnrolledSamples, error) {
	if m.ListSamplesError != nil {
		return nil, m.ListSamplesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.EnrolledSamples
	for id, identity := range m.identities {
		data, ok := m.samples[id]
		if !identity.HasEnrollmentData || !ok {
			continue
		}
		out = append(out, database.EnrolledSamples{IdentityID: id, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// DeleteAllIdentities removes every identity and sample set
func (m *MockBackend) DeleteAllIdentities(ctx context.Context) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = make(map[string]*database.StoredIdentity)
	m.samples = make(map[string][]byte)
	return nil
}

// FindEntry returns the row for the key
func (m *MockBackend) FindEntry(ctx context.Context, identityID, date, course string) (*database.LedgerEntry, error) {
	if m.FindEntryError != nil {
		return nil, m.FindEntryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[ledgerKey{identityID, date, course}]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

// InsertEntry creates a row
func (m *MockBackend) InsertEntry(ctx context.Context, entry *database.LedgerEntry) error {
	if m.OnInsertEntry != nil {
		m.OnInsertEntry(entry)
	}
	if m.InsertEntryError != nil {
		return m.InsertEntryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey{entry.IdentityID, entry.Date, entry.Course}
	if _, ok := m.entries[key]; ok {
		return fmt.Errorf("insert attendance: %w", database.ErrDuplicate)
	}
	c := *entry
	m.entries[key] = &c
	return nil
}

// TouchEntry updates LastSeen of an existing row
func (m *MockBackend) TouchEntry(ctx context.Context, identityID, date, course string, lastSeen time.Time) error {
	if m.TouchEntryError != nil {
		return m.TouchEntryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[ledgerKey{identityID, date, course}]; ok {
		e.LastSeen = lastSeen
	}
	return nil
}

// EntriesForDate returns all rows of a day, most recently seen first
func (m *MockBackend) EntriesForDate(ctx context.Context, date string) ([]database.LedgerEntry, error) {
	if m.EntriesError != nil {
		return nil, m.EntriesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.LedgerEntry
	for key, e := range m.entries {
		if key.date == date {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].IdentityID < out[j].IdentityID
	})
	return out, nil
}

// CountForDate returns the number of distinct identities seen on a day
func (m *MockBackend) CountForDate(ctx context.Context, date string) (int, error) {
	if m.EntriesError != nil {
		return 0, m.EntriesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range m.entries {
		if key.date == date {
			seen[key.identityID] = struct{}{}
		}
	}
	return len(seen), nil
}

// DeleteAllEntries removes every attendance row
func (m *MockBackend) DeleteAllEntries(ctx context.Context) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[ledgerKey]*database.LedgerEntry)
	return nil
}

// AddSighting appends a sighting and fills in its ID
func (m *MockBackend) AddSighting(ctx context.Context, s *database.Sighting) error {
	if m.AddSightingError != nil {
		return m.AddSightingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.sightings = append(m.sightings, *s)
	return nil
}

// ListSightings returns the latest sightings, newest first
func (m *MockBackend) ListSightings(ctx context.Context, limit int) ([]database.Sighting, error) {
	if m.ListSightingsError != nil {
		return nil, m.ListSightingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = len(m.sightings)
	}
	out := make([]database.Sighting, 0, min(limit, len(m.sightings)))
	for i := len(m.sightings) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.sightings[i])
	}
	return out, nil
}

// DeleteAllSightings removes every sighting
func (m *MockBackend) DeleteAllSightings(ctx context.Context) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sightings = nil
	return nil
}

// Ping reports the injected ping error
func (m *MockBackend) Ping(ctx context.Context) error {
	return m.PingError
}

// Close marks the backend as closed
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ database.Backend = (*MockBackend)(nil)
