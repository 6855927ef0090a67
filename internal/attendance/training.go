package attendance

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

// TrainResult summarizes a training run.
type TrainResult struct {
	IdentityCount int       `json:"identity_count"`
	SampleCount   int       `json:"sample_count"`
	TrainedAt     time.Time `json:"trained_at"`
}

// ProgressFunc reports how many sample sets have been loaded.
type ProgressFunc func(done, total int)

// Training rebuilds the classifier from every enrolled sample set.
type Training struct {
	identities database.IdentityStore
	trainer    Trainer
	store      ArtifactStore
	live       *LiveArtifact
	clock      Clock

	mu sync.Mutex
}

// NewTraining creates a training coordinator that publishes into live.
func NewTraining(identities database.IdentityStore, trainer Trainer, store ArtifactStore, live *LiveArtifact) *Training {
	return &Training{
		identities: identities,
		trainer:    trainer,
		store:      store,
		live:       live,
		clock:      time.Now,
	}
}

// SetClock overrides the time source.
func (t *Training) SetClock(clock Clock) {
	t.clock = clock
}

// Live returns the live artifact holder.
func (t *Training) Live() *LiveArtifact {
	return t.live
}

// LoadLive loads the persisted artifact into the live slot. A missing
// artifact leaves recognition without a classifier and is not an error.
func (t *Training) LoadLive(ctx context.Context) (*Artifact, error) {
	a, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading classifier: %w", err)
	}
	if a != nil {
		t.live.Store(a)
	}
	return a, nil
}

// Train is TrainWithProgress without progress reporting.
func (t *Training) Train(ctx context.Context) (TrainResult, error) {
	return t.TrainWithProgress(ctx, nil)
}

// TrainWithProgress loads every enrolled sample set, assigns labels 0..n-1 in
// retrieval order, fits a classifier, persists it and swaps it live. The live
// artifact is untouched on any failure. Only one run may be active.
func (t *Training) TrainWithProgress(ctx context.Context, progress ProgressFunc) (TrainResult, error) {
	if !t.mu.TryLock() {
		return TrainResult{}, ErrTrainingInProgress
	}
	defer t.mu.Unlock()

	sets, err := t.identities.ListEnrolledSamples(ctx)
	if err != nil {
		return TrainResult{}, storageError("loading sample sets", err)
	}

	var faces []*image.Gray
	var labels []int
	labelMap := make(map[int]string)

	for i, s := range sets {
		set, err := samples.Decode(s.Data)
		if err != nil {
			log.Printf("Warning: skipping samples of %s: %v", s.IdentityID, err)
		} else if set.Len() > 0 {
			label := len(labelMap)
			labelMap[label] = s.IdentityID
			for _, face := range set.Samples {
				faces = append(faces, face)
				labels = append(labels, label)
			}
		}
		if progress != nil {
			progress(i+1, len(sets))
		}
	}

	if len(faces) == 0 {
		return TrainResult{}, ErrNoTrainingData
	}

	classifier, err := t.trainer.Fit(ctx, faces, labels)
	if err != nil {
		return TrainResult{}, fmt.Errorf("fitting classifier: %w", err)
	}

	artifact := &Artifact{
		Classifier:    classifier,
		Labels:        labelMap,
		TrainedAt:     t.clock(),
		IdentityCount: len(labelMap),
		SampleCount:   len(faces),
	}
	if err := t.store.Save(ctx, artifact); err != nil {
		return TrainResult{}, storageError("saving classifier", err)
	}
	t.live.Store(artifact)

	return TrainResult{
		IdentityCount: artifact.IdentityCount,
		SampleCount:   artifact.SampleCount,
		TrainedAt:     artifact.TrainedAt,
	}, nil
}
