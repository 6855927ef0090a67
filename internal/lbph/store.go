package lbph

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

const artifactVersion = 1

var ErrArtifactVersion = errors.New("unsupported artifact version")

// artifactFile is the gob payload. The search graph is rebuilt on load.
type artifactFile struct {
	Version       int
	Params        Params
	SampleLabels  []int
	Histograms    [][]float32
	Labels        map[int]string
	TrainedAt     time.Time
	IdentityCount int
	SampleCount   int
}

// FileStore persists the trained artifact as one zstd-compressed gob file.
// Writes go through a temporary file that atomically replaces the old one.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the artifact at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the artifact location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the artifact. Only LBPH models can be persisted.
func (s *FileStore) Save(_ context.Context, a *attendance.Artifact) error {
	model, ok := a.Classifier.(*Model)
	if !ok {
		return fmt.Errorf("cannot persist classifier of type %T", a.Classifier)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	pending, err := renameio.TempFile("", s.path)
	if err != nil {
		return fmt.Errorf("creating temporary artifact: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace

	zw, err := zstd.NewWriter(pending)
	if err != nil {
		return fmt.Errorf("creating compressor: %w", err)
	}
	payload := artifactFile{
		Version:       artifactVersion,
		Params:        model.params,
		SampleLabels:  model.labels,
		Histograms:    model.histograms,
		Labels:        a.Labels,
		TrainedAt:     a.TrainedAt,
		IdentityCount: a.IdentityCount,
		SampleCount:   a.SampleCount,
	}
	if err := gob.NewEncoder(zw).Encode(&payload); err != nil {
		zw.Close()
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing artifact: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

// Load reads the artifact. A missing file yields (nil, nil).
func (s *FileStore) Load(_ context.Context) (*attendance.Artifact, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer zr.Close()

	var payload artifactFile
	if err := gob.NewDecoder(zr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if payload.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %d", ErrArtifactVersion, payload.Version)
	}
	if len(payload.Histograms) != len(payload.SampleLabels) {
		return nil, fmt.Errorf("decoding artifact: %d histograms but %d labels",
			len(payload.Histograms), len(payload.SampleLabels))
	}

	return &attendance.Artifact{
		Classifier:    newModel(payload.Params, payload.Histograms, payload.SampleLabels),
		Labels:        payload.Labels,
		TrainedAt:     payload.TrainedAt,
		IdentityCount: payload.IdentityCount,
		SampleCount:   payload.SampleCount,
	}, nil
}

// Remove deletes the artifact. Removing a missing artifact is not an error.
func (s *FileStore) Remove(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}
