package attendance

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Admin performs bulk resets.
type Admin struct {
	backend    database.Backend
	store      ArtifactStore
	live       *LiveArtifact
	samplesDir string
	unknownDir string
}

// NewAdmin creates the reset coordinator.
func NewAdmin(backend database.Backend, store ArtifactStore, live *LiveArtifact, samplesDir, unknownDir string) *Admin {
	return &Admin{
		backend:    backend,
		store:      store,
		live:       live,
		samplesDir: samplesDir,
		unknownDir: unknownDir,
	}
}

// ResetAll wipes identities, attendance, sightings, the classifier and every
// stored image.
func (a *Admin) ResetAll(ctx context.Context) error {
	if err := a.backend.DeleteAllEntries(ctx); err != nil {
		return storageError("clearing attendance", err)
	}
	if err := a.backend.DeleteAllSightings(ctx); err != nil {
		return storageError("clearing sightings", err)
	}
	if err := a.ResetIdentities(ctx); err != nil {
		return err
	}
	return recreateDir(a.unknownDir)
}

// ResetIdentities wipes identities, the classifier and the sample backups.
// The attendance ledger is kept.
func (a *Admin) ResetIdentities(ctx context.Context) error {
	if err := a.backend.DeleteAllIdentities(ctx); err != nil {
		return storageError("clearing identities", err)
	}
	if err := a.store.Remove(ctx); err != nil {
		return fmt.Errorf("removing classifier: %w", err)
	}
	a.live.Store(nil)
	return recreateDir(a.samplesDir)
}

// ResetAttendance wipes the attendance ledger only.
func (a *Admin) ResetAttendance(ctx context.Context) error {
	if err := a.backend.DeleteAllEntries(ctx); err != nil {
		return storageError("clearing attendance", err)
	}
	return nil
}

func recreateDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
