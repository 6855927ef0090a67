package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// PendingIdentity is the identity a capture is being collected for.
type PendingIdentity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Semester   string `json:"semester,omitempty"`
	Section    string `json:"section,omitempty"`
}

// FinalizeResult describes a completed enrollment.
type FinalizeResult struct {
	Identity    database.StoredIdentity `json:"identity"`
	SampleCount int                     `json:"sample_count"`
	BackupDir   string                  `json:"backup_dir,omitempty"`
}

// Enrollment turns a completed capture into a stored identity.
type Enrollment struct {
	capture    *CaptureSession
	identities database.IdentityStore
	policy     config.PolicyConfig
	samplesDir string

	mu      sync.Mutex
	pending *PendingIdentity
}

// NewEnrollment creates an enrollment coordinator. Raw samples are mirrored
// to samplesDir; an empty samplesDir disables the mirror.
func NewEnrollment(capture *CaptureSession, identities database.IdentityStore, policy config.PolicyConfig, samplesDir string) *Enrollment {
	return &Enrollment{
		capture:    capture,
		identities: identities,
		policy:     policy,
		samplesDir: samplesDir,
	}
}

func (e *Enrollment) validate(ctx context.Context, p PendingIdentity) (PendingIdentity, error) {
	p.ID = strings.TrimSpace(p.ID)
	if err := ValidateIdentityID(p.ID); err != nil {
		return p, err
	}

	name, err := NormalizeName(p.Name)
	if err != nil {
		return p, err
	}
	p.Name = name

	p.Department = strings.TrimSpace(p.Department)
	if p.Department == "" {
		p.Department = e.policy.DefaultDepartment
	}
	p.Semester = strings.TrimSpace(p.Semester)
	p.Section = strings.TrimSpace(p.Section)
	for _, err := range []error{
		checkLength("department", p.Department, maxDepartmentLength),
		checkLength("semester", p.Semester, maxSemesterLength),
		checkLength("section", p.Section, maxSectionLength),
	} {
		if err != nil {
			return p, err
		}
	}

	existing, err := e.identities.GetIdentity(ctx, p.ID)
	if err != nil {
		return p, storageError("looking up identity", err)
	}
	if existing != nil {
		return p, fmt.Errorf("%w: %s", ErrDuplicateIdentity, p.ID)
	}
	return p, nil
}

// Begin validates the identity, remembers it as pending and starts a new capture.
func (e *Enrollment) Begin(ctx context.Context, p PendingIdentity) (CaptureStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.validate(ctx, p)
	if err != nil {
		return e.capture.Status(), err
	}
	e.pending = &p
	return e.capture.Start(), nil
}

// Pending returns the identity being enrolled, or nil.
func (e *Enrollment) Pending() *PendingIdentity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return nil
	}
	p := *e.pending
	return &p
}

// Cancel forgets the pending identity.
func (e *Enrollment) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
}

// Finalize persists the pending identity with the samples captured so far.
// Nothing is written when the capture holds fewer than the minimum samples.
// Otherwise the capture is completed at the snapshot taken here. Training is
// not triggered.
func (e *Enrollment) Finalize(ctx context.Context) (*FinalizeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return nil, ErrNoPendingIdentity
	}

	status, faces := e.capture.Snapshot()
	if status.Count < e.policy.MinSamples {
		return nil, fmt.Errorf("%w: captured %d, need at least %d", ErrInsufficientSamples, status.Count, e.policy.MinSamples)
	}
	// Freeze the session so a running pull loop stops adding samples that
	// would not be persisted.
	e.capture.Abort(status.Generation)

	p, err := e.validate(ctx, *e.pending)
	if err != nil {
		return nil, err
	}

	set, err := samples.NewSet(p.ID, faces)
	if err != nil {
		return nil, fmt.Errorf("building sample set: %w", err)
	}
	data, err := samples.Encode(set)
	if err != nil {
		return nil, fmt.Errorf("encoding sample set: %w", err)
	}

	identity := database.StoredIdentity{
		ID:         p.ID,
		Name:       p.Name,
		Department: p.Department,
		Semester:   p.Semester,
		Section:    p.Section,
	}
	if err := e.identities.CreateIdentity(ctx, &identity); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, p.ID)
		}
		return nil, storageError("creating identity", err)
	}
	if err := e.identities.SaveSamples(ctx, p.ID, data); err != nil {
		return nil, storageError("saving samples", err)
	}
	identity.HasEnrollmentData = true

	result := &FinalizeResult{Identity: identity, SampleCount: len(faces)}
	if e.samplesDir != "" {
		dir := filepath.Join(e.samplesDir, p.ID)
		if err := writeBackup(dir, faces); err != nil {
			log.Printf("Warning: failed to back up samples of %s: %v", p.ID, err)
		} else {
			result.BackupDir = dir
		}
	}

	e.pending = nil
	return result, nil
}

// writeBackup replaces dir with face_1.jpg .. face_N.jpg.
func writeBackup(dir string, faces []*image.Gray) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	for i, face := range faces {
		data, err := vision.EncodeJPEG(face)
		if err != nil {
			return fmt.Errorf("encoding sample %d: %w", i+1, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("face_%d.jpg", i+1))
		if err := os.WriteFile(name, data, 0o644); err != nil { //nolint:gosec // backups are meant to be readable
			return fmt.Errorf("writing sample %d: %w", i+1, err)
		}
	}
	return nil
}
