//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_initial.sql" {
		t.Errorf("unexpected applied migrations %v", versions)
	}
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		identity := &database.StoredIdentity{ID: "S2", Name: "Bea", Department: "EEE"}
		if err := repo.CreateIdentity(ctx, identity); err != nil {
			t.Fatalf("CreateIdentity: %v", err)
		}
		if identity.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be filled in")
		}

		got, err := repo.GetIdentity(ctx, "S2")
		if err != nil {
			t.Fatalf("GetIdentity: %v", err)
		}
		if got == nil || got.Name != "Bea" || got.Department != "EEE" || got.HasEnrollmentData {
			t.Errorf("unexpected identity %+v", got)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := repo.CreateIdentity(ctx, &database.StoredIdentity{ID: "S2", Name: "Other"})
		if !errors.Is(err, database.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetIdentity(ctx, "nope")
		if err != nil || got != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("SamplesAndOrdering", func(t *testing.T) {
		if err := repo.CreateIdentity(ctx, &database.StoredIdentity{ID: "S1", Name: "Ann"}); err != nil {
			t.Fatalf("CreateIdentity: %v", err)
		}
		if err := repo.SaveSamples(ctx, "S2", []byte("two")); err != nil {
			t.Fatalf("SaveSamples: %v", err)
		}
		if err := repo.SaveSamples(ctx, "S1", []byte("one")); err != nil {
			t.Fatalf("SaveSamples: %v", err)
		}
		if err := repo.SaveSamples(ctx, "ghost", []byte("x")); err == nil {
			t.Error("expected an error for a missing identity")
		}

		sets, err := repo.ListEnrolledSamples(ctx)
		if err != nil {
			t.Fatalf("ListEnrolledSamples: %v", err)
		}
		if len(sets) != 2 || sets[0].IdentityID != "S1" || string(sets[1].Data) != "two" {
			t.Errorf("unexpected sample sets %+v", sets)
		}

		counts, err := repo.CountIdentities(ctx)
		if err != nil {
			t.Fatalf("CountIdentities: %v", err)
		}
		if counts.Total != 2 || counts.Enrolled != 2 {
			t.Errorf("unexpected counts %+v", counts)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		if err := repo.DeleteAllIdentities(ctx); err != nil {
			t.Fatalf("DeleteAllIdentities: %v", err)
		}
		identities, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("ListIdentities: %v", err)
		}
		if len(identities) != 0 {
			t.Errorf("expected no identities, got %d", len(identities))
		}
	})
}

func TestLedgerRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewLedgerRepository(pool)
	in := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	entry := &database.LedgerEntry{
		IdentityID: "S1", Name: "Ann", Department: "CSE", Course: "CSE101",
		Date: "2024-03-01", CreatedAt: in, LastSeen: in,
	}
	if err := repo.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	if err := repo.InsertEntry(ctx, entry); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on second insert, got %v", err)
	}

	if err := repo.TouchEntry(ctx, "S1", "2024-03-01", "CSE101", out); err != nil {
		t.Fatalf("TouchEntry: %v", err)
	}

	got, err := repo.FindEntry(ctx, "S1", "2024-03-01", "CSE101")
	if err != nil {
		t.Fatalf("FindEntry: %v", err)
	}
	if got == nil {
		t.Fatal("expected an entry")
	}
	if !got.CreatedAt.Equal(in) || !got.LastSeen.Equal(out) || got.Date != "2024-03-01" {
		t.Errorf("unexpected entry %+v", got)
	}

	missing, err := repo.FindEntry(ctx, "S1", "2024-03-02", "CSE101")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for another date, got (%v, %v)", missing, err)
	}

	entries, err := repo.EntriesForDate(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("EntriesForDate: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}

	n, err := repo.CountForDate(ctx, "2024-03-01")
	if err != nil || n != 1 {
		t.Errorf("expected count 1, got %d (%v)", n, err)
	}

	if err := repo.DeleteAllEntries(ctx); err != nil {
		t.Fatalf("DeleteAllEntries: %v", err)
	}
	if n, _ := repo.CountForDate(ctx, "2024-03-01"); n != 0 {
		t.Errorf("expected 0 after delete, got %d", n)
	}
}

func TestSightingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSightingRepository(pool)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 3 {
		s := &database.Sighting{ImagePath: fmt.Sprintf("unknown_%d.jpg", i), DetectedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.AddSighting(ctx, s); err != nil {
			t.Fatalf("AddSighting: %v", err)
		}
		if s.ID == 0 {
			t.Error("expected ID to be assigned")
		}
	}

	sightings, err := repo.ListSightings(ctx, 2)
	if err != nil {
		t.Fatalf("ListSightings: %v", err)
	}
	if len(sightings) != 2 || sightings[0].ImagePath != "unknown_2.jpg" {
		t.Errorf("unexpected sightings %+v", sightings)
	}

	if err := repo.DeleteAllSightings(ctx); err != nil {
		t.Fatalf("DeleteAllSightings: %v", err)
	}
}
