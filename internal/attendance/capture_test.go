package attendance

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
)

func newTestCapture(regions ...image.Rectangle) (*CaptureSession, *stubDetector) {
	det := &stubDetector{regions: regions}
	return NewCaptureSession(det, testPolicy()), det
}

func TestCaptureSession_StartsIdle(t *testing.T) {
	c, _ := newTestCapture(faceRegion())

	st := c.Status()
	if st.State != StateIdle {
		t.Errorf("expected idle, got %s", st.State)
	}
	if st.Target != 200 {
		t.Errorf("expected target 200, got %d", st.Target)
	}

	if _, err := c.Ingest(context.Background(), testFrame()); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("expected ErrNotCapturing, got %v", err)
	}
}

func TestCaptureSession_StopsAtTarget(t *testing.T) {
	c, _ := newTestCapture(faceRegion(), image.Rect(150, 40, 250, 140), image.Rect(40, 130, 120, 210))
	c.Start()

	var st CaptureStatus
	var err error
	for i := 0; i < 66; i++ {
		st, err = c.Ingest(context.Background(), testFrame())
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	if st.Count != 198 || st.State != StateCapturing {
		t.Fatalf("expected 198 capturing, got %d %s", st.Count, st.State)
	}

	// Three faces arrive but only two fit.
	st, err = c.Ingest(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if st.Count != 200 {
		t.Errorf("expected count capped at 200, got %d", st.Count)
	}
	if st.State != StateComplete || !st.Done() {
		t.Errorf("expected complete, got %s", st.State)
	}

	st, err = c.Ingest(context.Background(), testFrame())
	if !errors.Is(err, ErrNotCapturing) {
		t.Errorf("expected ErrNotCapturing after completion, got %v", err)
	}
	if st.Count != 200 {
		t.Errorf("count changed after completion: %d", st.Count)
	}
	if got := len(c.Samples()); got != 200 {
		t.Errorf("expected 200 samples, got %d", got)
	}
}

func TestCaptureSession_SamplesAreNormalized(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	c.Start()
	if _, err := c.Ingest(context.Background(), testFrame()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	s := c.Samples()
	if len(s) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(s))
	}
	if b := s[0].Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("expected 200x200 sample, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCaptureSession_StartDiscardsPrevious(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	first := c.Start()
	for i := 0; i < 5; i++ {
		c.Ingest(context.Background(), testFrame())
	}

	second := c.Start()
	if second.Count != 0 || second.State != StateCapturing {
		t.Errorf("expected fresh capturing session, got %d %s", second.Count, second.State)
	}
	if second.SessionID == first.SessionID {
		t.Error("expected a new session id")
	}
	if second.Generation <= first.Generation {
		t.Error("expected generation to increase")
	}
}

func TestCaptureSession_StaleIngestDiscarded(t *testing.T) {
	c, det := newTestCapture(faceRegion())
	c.Start()

	// The session is restarted while the first frame is being detected.
	var once sync.Once
	det.hook = func() { once.Do(func() { c.Start() }) }

	st, err := c.Ingest(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if st.Count != 0 {
		t.Errorf("expected stale samples dropped, got count %d", st.Count)
	}
	if got := c.Status().Count; got != 0 {
		t.Errorf("expected new session empty, got %d", got)
	}
}

func TestCaptureSession_DetectorError(t *testing.T) {
	c, det := newTestCapture()
	det.err = errBoom
	c.Start()

	_, err := c.Ingest(context.Background(), testFrame())
	if !errors.Is(err, errBoom) {
		t.Errorf("expected detector error, got %v", err)
	}
	if c.Status().State != StateCapturing {
		t.Error("detector error should not end the session")
	}
}

func TestCaptureSession_Abort(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	old := c.Start()
	current := c.Start()

	if st := c.Abort(old.Generation); st.State != StateCapturing {
		t.Errorf("abort of an old generation should be a no-op, got %s", st.State)
	}
	if st := c.Abort(current.Generation); st.State != StateComplete {
		t.Errorf("expected complete, got %s", st.State)
	}
}

func TestCaptureSession_RunUntilSourceEnds(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	c.Start()
	src := newSliceSource(5)

	var sunk int
	st := c.Run(context.Background(), src, func(image.Image) error {
		sunk++
		return nil
	})

	if st.Count != 5 {
		t.Errorf("expected 5 samples, got %d", st.Count)
	}
	if c.Status().State != StateComplete {
		t.Errorf("expected complete after source ended, got %s", c.Status().State)
	}
	if sunk != 5 {
		t.Errorf("expected 5 annotated frames, got %d", sunk)
	}
	if src.closeCount() != 1 {
		t.Errorf("expected source closed once, got %d", src.closeCount())
	}
}

func TestCaptureSession_RunStopsAtTarget(t *testing.T) {
	policy := testPolicy()
	policy.CaptureTarget = 4
	c := NewCaptureSession(&stubDetector{regions: []image.Rectangle{faceRegion()}}, policy)
	c.Start()
	src := newSliceSource(10)

	st := c.Run(context.Background(), src, nil)

	if st.Count != 4 || !st.Done() {
		t.Errorf("expected 4 complete, got %d %s", st.Count, st.State)
	}
	if src.read() != 4 {
		t.Errorf("expected 4 frames read, got %d", src.read())
	}
	if src.closeCount() != 1 {
		t.Error("expected source closed")
	}
}

func TestCaptureSession_RunSinkErrorStops(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	c.Start()
	src := newSliceSource(10)

	st := c.Run(context.Background(), src, func(image.Image) error { return errBoom })

	if st.State != StateComplete {
		t.Errorf("expected complete after client went away, got %s", st.State)
	}
	if src.read() != 1 {
		t.Errorf("expected 1 frame read, got %d", src.read())
	}
	if src.closeCount() != 1 {
		t.Error("expected source closed")
	}
}

func TestCaptureSession_RunCancelled(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	c.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newSliceSource(3)

	st := c.Run(ctx, src, nil)

	if st.State != StateComplete || st.Count != 0 {
		t.Errorf("expected empty complete session, got %d %s", st.Count, st.State)
	}
	if src.closeCount() != 1 {
		t.Error("expected source closed")
	}
}

func TestCaptureSession_RunWhenIdleClosesSource(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	src := newSliceSource(3)

	st := c.Run(context.Background(), src, nil)

	if st.State != StateIdle {
		t.Errorf("expected idle, got %s", st.State)
	}
	if src.read() != 0 {
		t.Errorf("expected no frames read, got %d", src.read())
	}
	if src.closeCount() != 1 {
		t.Error("expected source closed")
	}
}

func TestCaptureSession_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCapture(faceRegion())
	c.Start()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Ingest(context.Background(), testFrame())
				c.Status()
			}
		}()
	}
	wg.Wait()

	if got := c.Status().Count; got != 40 {
		t.Errorf("expected 40 samples, got %d", got)
	}
}
