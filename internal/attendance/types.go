// Package attendance implements enrollment capture, classifier training,
// live recognition and the attendance ledger.
package attendance

import (
	"context"
	"image"
	"sync/atomic"
	"time"
)

// FaceDetector finds face regions in a frame.
type FaceDetector interface {
	Detect(ctx context.Context, frame image.Image) ([]image.Rectangle, error)
}

// FaceClassifier predicts the label of a normalized face. The score is a
// dissimilarity: lower means a closer match.
type FaceClassifier interface {
	Predict(face *image.Gray) (label int, score float64)
}

// Trainer fits a classifier on labeled samples.
type Trainer interface {
	Fit(ctx context.Context, faces []*image.Gray, labels []int) (FaceClassifier, error)
}

// Artifact is a trained classifier together with its label to identity map.
type Artifact struct {
	Classifier    FaceClassifier
	Labels        map[int]string
	TrainedAt     time.Time
	IdentityCount int
	SampleCount   int
}

// IdentityFor resolves a classifier label to an identity id.
func (a *Artifact) IdentityFor(label int) (string, bool) {
	id, ok := a.Labels[label]
	return id, ok
}

// ArtifactStore persists the trained artifact. Load returns (nil, nil) when
// nothing has been saved yet.
type ArtifactStore interface {
	Save(ctx context.Context, artifact *Artifact) error
	Load(ctx context.Context) (*Artifact, error)
	Remove(ctx context.Context) error
}

// FrameSource yields frames until it returns io.EOF or another error.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameSink receives annotated frames. Returning an error stops the loop.
type FrameSink func(frame image.Image) error

// Clock returns the current time.
type Clock func() time.Time

// LiveArtifact holds the artifact served to recognition. Swaps are atomic.
type LiveArtifact struct {
	p atomic.Pointer[Artifact]
}

// Load returns the live artifact or nil.
func (l *LiveArtifact) Load() *Artifact {
	return l.p.Load()
}

// Store replaces the live artifact. nil clears it.
func (l *LiveArtifact) Store(a *Artifact) {
	l.p.Store(a)
}
