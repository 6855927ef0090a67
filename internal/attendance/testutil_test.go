package attendance

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

// stubDetector returns the same regions for every frame.
type stubDetector struct {
	mu      sync.Mutex
	regions []image.Rectangle
	err     error
	calls   int
	hook    func()
}

func (d *stubDetector) Detect(ctx context.Context, frame image.Image) ([]image.Rectangle, error) {
	d.mu.Lock()
	d.calls++
	hook := d.hook
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.regions, nil
}

func faceRegion() image.Rectangle {
	return image.Rect(40, 40, 140, 140)
}

// stubClassifier predicts a fixed label and score.
type stubClassifier struct {
	label int
	score float64
}

func (c *stubClassifier) Predict(*image.Gray) (int, float64) {
	return c.label, c.score
}

// stubTrainer records its inputs and returns a fixed classifier.
type stubTrainer struct {
	mu         sync.Mutex
	classifier FaceClassifier
	err        error
	faces      int
	labels     []int
	block      chan struct{}
	started    chan struct{}
}

func (t *stubTrainer) Fit(ctx context.Context, faces []*image.Gray, labels []int) (FaceClassifier, error) {
	if t.started != nil {
		close(t.started)
	}
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faces = len(faces)
	t.labels = append([]int(nil), labels...)
	if t.err != nil {
		return nil, t.err
	}
	if t.classifier == nil {
		return &stubClassifier{}, nil
	}
	return t.classifier, nil
}

// memArtifactStore keeps the artifact in memory.
type memArtifactStore struct {
	mu        sync.Mutex
	artifact  *Artifact
	saves     int
	saveErr   error
	loadErr   error
	removeErr error
}

func (s *memArtifactStore) Save(ctx context.Context, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.artifact = a
	return nil
}

func (s *memArtifactStore) Load(ctx context.Context) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.loadErr
}

func (s *memArtifactStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.artifact = nil
	return nil
}

// sliceSource yields frames, then err (io.EOF when nil).
type sliceSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	err    error
	closed int
}

func newSliceSource(n int) *sliceSource {
	s := &sliceSource{}
	for range n {
		s.frames = append(s.frames, testFrame())
	}
	return s
}

func (s *sliceSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *sliceSource) read() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *sliceSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordingPublisher collects published recognitions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Recognition
}

func (p *recordingPublisher) PublishRecognition(r Recognition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, r)
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func testPolicy() config.PolicyConfig {
	return config.DefaultPolicy()
}

func grayFace(size int, shade uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	return img
}

// encodedSet encodes n small samples labeled with id.
func encodedSet(t *testing.T, id string, n int) []byte {
	t.Helper()
	faces := make([]*image.Gray, n)
	for i := range faces {
		faces[i] = grayFace(8, uint8(i))
	}
	set, err := samples.NewSet(id, faces)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	data, err := samples.Encode(set)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

// fixedClock is a settable clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var errBoom = errors.New("boom")
