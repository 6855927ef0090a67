package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// CaptureState is the state of the enrollment capture.
type CaptureState string

const (
	StateIdle      CaptureState = "idle"
	StateCapturing CaptureState = "capturing"
	StateComplete  CaptureState = "complete"
)

// CaptureStatus is a consistent snapshot of the capture session.
type CaptureStatus struct {
	SessionID  string       `json:"session_id,omitempty"`
	Generation uint64       `json:"-"`
	State      CaptureState `json:"state"`
	Count      int          `json:"count"`
	Target     int          `json:"target"`
}

// Done reports whether the frame source feeding this session should stop.
func (s CaptureStatus) Done() bool {
	return s.State == StateComplete
}

// CaptureSession accumulates normalized face samples for one enrollment.
// Exactly one session is active at a time; Start always wins and invalidates
// samples still being prepared for the previous generation.
type CaptureSession struct {
	detector   FaceDetector
	target     int
	sampleSize int

	mu         sync.Mutex
	state      CaptureState
	generation uint64
	sessionID  string
	samples    []*image.Gray
}

// NewCaptureSession creates an idle session.
func NewCaptureSession(detector FaceDetector, policy config.PolicyConfig) *CaptureSession {
	return &CaptureSession{
		detector:   detector,
		target:     policy.CaptureTarget,
		sampleSize: policy.SampleSize,
		state:      StateIdle,
	}
}

func (c *CaptureSession) statusLocked() CaptureStatus {
	return CaptureStatus{
		SessionID:  c.sessionID,
		Generation: c.generation,
		State:      c.state,
		Count:      len(c.samples),
		Target:     c.target,
	}
}

// Start discards any accumulated samples and begins a new capture.
func (c *CaptureSession) Start() CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.sessionID = uuid.NewString()
	c.samples = make([]*image.Gray, 0, c.target)
	c.state = StateCapturing
	return c.statusLocked()
}

// Status returns the current state and count.
func (c *CaptureSession) Status() CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Snapshot returns the status together with a copy of the accumulated samples.
func (c *CaptureSession) Snapshot() (CaptureStatus, []*image.Gray) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(), append([]*image.Gray(nil), c.samples...)
}

// Samples returns a copy of the accumulated samples.
func (c *CaptureSession) Samples() []*image.Gray {
	_, samples := c.Snapshot()
	return samples
}

// Abort completes the given generation with whatever was accumulated.
// It is a no-op when a newer session has been started in the meantime.
func (c *CaptureSession) Abort(generation uint64) CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation && c.state == StateCapturing {
		c.state = StateComplete
	}
	return c.statusLocked()
}

// Ingest detects faces in frame and appends them as samples. Detection and
// normalization run without holding the lock; the results are dropped if
// the session was restarted or completed meanwhile.
func (c *CaptureSession) Ingest(ctx context.Context, frame image.Image) (CaptureStatus, error) {
	c.mu.Lock()
	if c.state != StateCapturing {
		st := c.statusLocked()
		c.mu.Unlock()
		return st, ErrNotCapturing
	}
	generation := c.generation
	c.mu.Unlock()

	regions, err := c.detector.Detect(ctx, frame)
	if err != nil {
		return c.Status(), fmt.Errorf("detecting faces: %w", err)
	}

	faces := make([]*image.Gray, 0, len(regions))
	for _, r := range regions {
		face, err := vision.NormalizeFace(frame, r, c.sampleSize)
		if err != nil {
			continue
		}
		faces = append(faces, face)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || c.state != StateCapturing {
		return c.statusLocked(), nil
	}
	for _, face := range faces {
		if len(c.samples) >= c.target {
			break
		}
		c.samples = append(c.samples, face)
	}
	if len(c.samples) >= c.target {
		c.state = StateComplete
	}
	return c.statusLocked(), nil
}

// Run pulls frames from source into the current session until the target is
// reached, the source ends or ctx is cancelled. The source is always closed
// and the session is completed with what it holds. Every frame is passed to
// sink, annotated with the capture progress, when sink is non-nil.
func (c *CaptureSession) Run(ctx context.Context, source FrameSource, sink FrameSink) CaptureStatus {
	defer source.Close()

	status := c.Status()
	generation := status.Generation
	defer c.Abort(generation)

	if status.State != StateCapturing {
		return status
	}

	for {
		frame, err := source.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Printf("capture: frame source failed: %v", err)
			}
			return c.Abort(generation)
		}

		status, err = c.Ingest(ctx, frame)
		if err != nil && !errors.Is(err, ErrNotCapturing) {
			log.Printf("capture: %v", err)
		}
		if status.Generation != generation {
			// A newer session took over.
			return status
		}

		if sink != nil {
			if err := sink(c.annotate(frame, status)); err != nil {
				return c.Abort(generation)
			}
		}
		if status.Done() {
			return status
		}
	}
}

func (c *CaptureSession) annotate(frame image.Image, status CaptureStatus) image.Image {
	canvas := vision.NewCanvas(frame)
	canvas.Text(10, 30, fmt.Sprintf("Captured: %d/%d faces", status.Count, status.Target), vision.ColorInfo)
	if status.Done() {
		canvas.Text(10, 50, "Capture complete", vision.ColorKnown)
	}
	return canvas.Image()
}
