package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// DaySummary is the first and last sighting of an identity on one day.
type DaySummary struct {
	IdentityID string
	In         time.Time
	Out        time.Time
}

// Ledger records attendance. Each (identity, date, course) has one row whose
// creation time is the first sighting and whose last-seen time is the latest.
type Ledger struct {
	store database.LedgerStore
	loc   *time.Location
}

// NewLedger creates a ledger that derives dates in loc.
func NewLedger(store database.LedgerStore, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{store: store, loc: loc}
}

// Location returns the time zone used for dates.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Upsert inserts the row with CreatedAt = LastSeen = ts, or moves LastSeen of
// an existing row to ts. CreatedAt is never modified.
func (l *Ledger) Upsert(ctx context.Context, identity database.StoredIdentity, date, course string, ts time.Time) error {
	existing, err := l.store.FindEntry(ctx, identity.ID, date, course)
	if err != nil {
		return storageError("finding attendance", err)
	}

	if existing == nil {
		err = l.store.InsertEntry(ctx, &database.LedgerEntry{
			IdentityID: identity.ID,
			Name:       identity.Name,
			Department: identity.Department,
			Course:     course,
			Date:       date,
			CreatedAt:  ts,
			LastSeen:   ts,
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return storageError("inserting attendance", err)
		}
		// Lost an insert race; the row exists now.
	}

	if err := l.store.TouchEntry(ctx, identity.ID, date, course, ts); err != nil {
		return storageError("updating attendance", err)
	}
	return nil
}

// ForDate returns, per identity seen on date, the earliest creation time and
// the latest last-seen time across all courses.
func (l *Ledger) ForDate(ctx context.Context, date string) (map[string]DaySummary, error) {
	entries, err := l.store.EntriesForDate(ctx, date)
	if err != nil {
		return nil, storageError("listing attendance", err)
	}

	out := make(map[string]DaySummary, len(entries))
	for _, e := range entries {
		s, ok := out[e.IdentityID]
		if !ok {
			out[e.IdentityID] = DaySummary{IdentityID: e.IdentityID, In: e.CreatedAt, Out: e.LastSeen}
			continue
		}
		if e.CreatedAt.Before(s.In) {
			s.In = e.CreatedAt
		}
		if e.LastSeen.After(s.Out) {
			s.Out = e.LastSeen
		}
		out[e.IdentityID] = s
	}
	return out, nil
}

// Entries returns the rows of date, most recently seen first.
func (l *Ledger) Entries(ctx context.Context, date string) ([]database.LedgerEntry, error) {
	entries, err := l.store.EntriesForDate(ctx, date)
	if err != nil {
		return nil, storageError("listing attendance", err)
	}
	return entries, nil
}

// CountForDate returns the number of distinct identities seen on date.
func (l *Ledger) CountForDate(ctx context.Context, date string) (int, error) {
	n, err := l.store.CountForDate(ctx, date)
	if err != nil {
		return 0, storageError("counting attendance", err)
	}
	return n, nil
}

// Today returns the rows of the current day, most recently seen first.
func (l *Ledger) Today(ctx context.Context, now time.Time) ([]database.LedgerEntry, error) {
	return l.Entries(ctx, l.DateOf(now))
}

// DateOf formats t as a ledger date in the ledger's time zone.
func (l *Ledger) DateOf(t time.Time) string {
	return t.In(l.loc).Format(constants.DateLayout)
}
