package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// stubDetector returns the same regions for every frame
type stubDetector struct {
	mu      sync.Mutex
	regions []image.Rectangle
	err     error
}

func (d *stubDetector) Detect(ctx context.Context, frame image.Image) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.regions, nil
}

// stubClassifier predicts a fixed label and score
type stubClassifier struct {
	label int
	score float64
}

func (c stubClassifier) Predict(*image.Gray) (int, float64) {
	return c.label, c.score
}

// stubTrainer records the labels it was fitted on
type stubTrainer struct {
	mu     sync.Mutex
	labels []int
	err    error
}

func (t *stubTrainer) Fit(ctx context.Context, faces []*image.Gray, labels []int) (attendance.FaceClassifier, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	t.labels = append([]int(nil), labels...)
	return stubClassifier{label: 0, score: 20}, nil
}

// memStore keeps the artifact in memory
type memStore struct {
	mu sync.Mutex
	a  *attendance.Artifact
}

func (s *memStore) Save(ctx context.Context, a *attendance.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a = a
	return nil
}

func (s *memStore) Load(ctx context.Context) (*attendance.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a, nil
}

func (s *memStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a = nil
	return nil
}

// testDate is the day every handler fixture runs on
var testDate = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fixture wires the attendance services on top of the mock backend
type fixture struct {
	backend    *mock.MockBackend
	detector   *stubDetector
	trainer    *stubTrainer
	store      *memStore
	live       *attendance.LiveArtifact
	capture    *attendance.CaptureSession
	enrollment *attendance.Enrollment
	training   *attendance.Training
	ledger     *attendance.Ledger
	reports    *attendance.Reports
	recognizer *attendance.Recognizer
	feed       *RecognitionFeed
	admin      *attendance.Admin
	guard      *camera.Guard
	policy     config.PolicyConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	policy := config.DefaultPolicy()
	policy.CaptureTarget = 3
	policy.MinSamples = 2
	policy.SampleSize = 32

	dir := t.TempDir()
	f := &fixture{
		backend:  mock.NewMockBackend(),
		detector: &stubDetector{regions: []image.Rectangle{image.Rect(40, 40, 140, 140)}},
		trainer:  &stubTrainer{},
		store:    &memStore{},
		live:     &attendance.LiveArtifact{},
		feed:     NewRecognitionFeed(),
		guard:    camera.NewGuard(nil),
		policy:   policy,
	}
	f.capture = attendance.NewCaptureSession(f.detector, policy)
	f.enrollment = attendance.NewEnrollment(f.capture, f.backend, policy, filepath.Join(dir, "StudentImages"))
	f.training = attendance.NewTraining(f.backend, f.trainer, f.store, f.live)
	f.ledger = attendance.NewLedger(f.backend, time.UTC)
	f.reports = attendance.NewReports(f.backend, f.ledger)
	f.recognizer = attendance.NewRecognizer(attendance.RecognizerOptions{
		Detector:   f.detector,
		Live:       f.live,
		Identities: f.backend,
		Ledger:     f.ledger,
		Sightings:  f.backend,
		Policy:     policy,
		UnknownDir: filepath.Join(dir, "UnknownFaces"),
		Publisher:  f.feed,
		Clock:      func() time.Time { return testDate },
	})
	f.admin = attendance.NewAdmin(f.backend, f.store, f.live, filepath.Join(dir, "StudentImages"), filepath.Join(dir, "UnknownFaces"))
	return f
}

// enroll seeds an identity with n encoded samples
func (f *fixture) enroll(t *testing.T, identity database.StoredIdentity, n int) {
	t.Helper()
	faces := make([]*image.Gray, n)
	for i := range faces {
		faces[i] = image.NewGray(image.Rect(0, 0, 8, 8))
	}
	set, err := samples.NewSet(identity.ID, faces)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	data, err := samples.Encode(set)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f.backend.AddIdentity(identity, data)
}

// testFrameJPEG returns an encoded 320x240 frame
func testFrameJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := range 240 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	return data
}

// frameRequest creates a request carrying a JPEG frame as its body
func frameRequest(t *testing.T, path string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(testFrameJPEG(t)))
	req.Header.Set("Content-Type", "image/jpeg")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
