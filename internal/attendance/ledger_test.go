package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

var alice = database.StoredIdentity{ID: "S001", Name: "Alice", Department: "CSE"}

func at(hour, minute, second int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, second, 0, time.UTC)
}

func TestLedger_UpsertKeepsFirstSighting(t *testing.T) {
	backend := mock.NewMockBackend()
	l := NewLedger(backend, time.UTC)
	ctx := context.Background()

	for _, ts := range []time.Time{at(9, 0, 0), at(12, 0, 0), at(17, 30, 0)} {
		if err := l.Upsert(ctx, alice, "2024-03-01", "General", ts); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	entries := backend.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 row, got %d", len(entries))
	}
	e := entries[0]
	if !e.CreatedAt.Equal(at(9, 0, 0)) {
		t.Errorf("expected created 09:00, got %v", e.CreatedAt)
	}
	if !e.LastSeen.Equal(at(17, 30, 0)) {
		t.Errorf("expected last seen 17:30, got %v", e.LastSeen)
	}
	if e.Name != "Alice" || e.Department != "CSE" {
		t.Errorf("expected denormalized name and department, got %+v", e)
	}
}

func TestLedger_UpsertPerCourse(t *testing.T) {
	backend := mock.NewMockBackend()
	l := NewLedger(backend, time.UTC)
	ctx := context.Background()

	l.Upsert(ctx, alice, "2024-03-01", "Math", at(9, 0, 0))
	l.Upsert(ctx, alice, "2024-03-01", "Physics", at(11, 0, 0))

	if got := len(backend.Entries()); got != 2 {
		t.Errorf("expected one row per course, got %d", got)
	}
}

func TestLedger_UpsertLosesInsertRace(t *testing.T) {
	backend := mock.NewMockBackend()
	l := NewLedger(backend, time.UTC)
	ctx := context.Background()

	// Another writer inserts the same key between find and insert.
	backend.OnInsertEntry = func(entry *database.LedgerEntry) {
		backend.OnInsertEntry = nil
		racer := *entry
		racer.CreatedAt, racer.LastSeen = at(8, 59, 59), at(8, 59, 59)
		if err := backend.InsertEntry(ctx, &racer); err != nil {
			t.Errorf("racer insert: %v", err)
		}
	}

	if err := l.Upsert(ctx, alice, "2024-03-01", "General", at(9, 0, 0)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entries := backend.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 row, got %d", len(entries))
	}
	if !entries[0].CreatedAt.Equal(at(8, 59, 59)) {
		t.Errorf("expected the racer's creation time, got %v", entries[0].CreatedAt)
	}
	if !entries[0].LastSeen.Equal(at(9, 0, 0)) {
		t.Errorf("expected last seen moved to 09:00, got %v", entries[0].LastSeen)
	}
}

func TestLedger_UpsertStorageErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mock.MockBackend)
	}{
		{"find", func(b *mock.MockBackend) { b.FindEntryError = errBoom }},
		{"insert", func(b *mock.MockBackend) { b.InsertEntryError = errBoom }},
		{"touch", func(b *mock.MockBackend) {
			b.InsertEntry(context.Background(), &database.LedgerEntry{IdentityID: "S001", Date: "2024-03-01", Course: "General"})
			b.TouchEntryError = errBoom
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := mock.NewMockBackend()
			tt.setup(backend)
			l := NewLedger(backend, time.UTC)

			err := l.Upsert(context.Background(), alice, "2024-03-01", "General", at(9, 0, 0))
			if !errors.Is(err, ErrStorage) || !errors.Is(err, errBoom) {
				t.Errorf("expected storage error, got %v", err)
			}
		})
	}
}

func TestLedger_ForDateAggregatesCourses(t *testing.T) {
	backend := mock.NewMockBackend()
	l := NewLedger(backend, time.UTC)
	ctx := context.Background()

	l.Upsert(ctx, alice, "2024-03-01", "Math", at(10, 0, 0))
	l.Upsert(ctx, alice, "2024-03-01", "Math", at(11, 0, 0))
	l.Upsert(ctx, alice, "2024-03-01", "Physics", at(9, 0, 0))
	l.Upsert(ctx, alice, "2024-03-01", "Physics", at(10, 30, 0))
	l.Upsert(ctx, alice, "2024-03-02", "Math", at(8, 0, 0))

	days, err := l.ForDate(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	s, ok := days["S001"]
	if !ok || len(days) != 1 {
		t.Fatalf("expected one summary, got %v", days)
	}
	if !s.In.Equal(at(9, 0, 0)) || !s.Out.Equal(at(11, 0, 0)) {
		t.Errorf("expected 09:00-11:00, got %v-%v", s.In, s.Out)
	}
}

func TestLedger_DateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	l := NewLedger(mock.NewMockBackend(), loc)

	// 21:00 UTC is already the next day at UTC+5.
	if got := l.DateOf(time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)); got != "2024-03-02" {
		t.Errorf("expected 2024-03-02, got %s", got)
	}
}

func TestLedger_Today(t *testing.T) {
	backend := mock.NewMockBackend()
	l := NewLedger(backend, time.UTC)
	ctx := context.Background()
	bob := database.StoredIdentity{ID: "S002", Name: "Bob"}

	l.Upsert(ctx, alice, "2024-03-01", "General", at(9, 0, 0))
	l.Upsert(ctx, bob, "2024-03-01", "General", at(10, 0, 0))
	l.Upsert(ctx, bob, "2024-02-29", "General", at(10, 0, 0))

	entries, err := l.Today(ctx, at(12, 0, 0))
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(entries))
	}
	if entries[0].IdentityID != "S002" {
		t.Errorf("expected most recent first, got %s", entries[0].IdentityID)
	}
}
