package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// RecognitionKind classifies a detected face.
type RecognitionKind string

const (
	KindKnown   RecognitionKind = "known"
	KindUnknown RecognitionKind = "unknown"
)

// Recognition is the outcome for one detected face.
type Recognition struct {
	Region     image.Rectangle `json:"region"`
	Kind       RecognitionKind `json:"kind"`
	IdentityID string          `json:"identity_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Department string          `json:"department,omitempty"`
	// Score is the classifier dissimilarity, NaN when no classifier is live.
	Score      float64   `json:"-"`
	Confidence int       `json:"confidence"`
	Logged     bool      `json:"logged"`
	Course     string    `json:"course,omitempty"`
	At         time.Time `json:"at"`
}

// FrameResult is the outcome of one frame.
type FrameResult struct {
	Recognitions []Recognition
	Annotated    *image.RGBA
}

// EventPublisher receives every known recognition.
type EventPublisher interface {
	PublishRecognition(r Recognition)
}

// RecognizerOptions wires a Recognizer.
type RecognizerOptions struct {
	Detector   FaceDetector
	Live       *LiveArtifact
	Identities database.IdentityStore
	Ledger     *Ledger
	Sightings  database.SightingStore
	Policy     config.PolicyConfig
	UnknownDir string
	Publisher  EventPublisher
	Clock      Clock
}

// Recognizer classifies faces in live frames and records attendance.
// Failures are logged and never surfaced: an unclassifiable face is Unknown.
type Recognizer struct {
	opts RecognizerOptions
}

// NewRecognizer creates a recognizer.
func NewRecognizer(opts RecognizerOptions) *Recognizer {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Recognizer{opts: opts}
}

// Confidence converts a dissimilarity score to the percentage shown on frames.
func Confidence(score float64) int {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return max(0, int(math.Round(100-score)))
}

// ProcessFrame detects and classifies every face in frame and applies the
// attendance policy for course.
func (r *Recognizer) ProcessFrame(ctx context.Context, frame image.Image, course string) FrameResult {
	now := r.opts.Clock()
	canvas := vision.NewCanvas(frame)
	origin := frame.Bounds().Min

	regions, err := r.opts.Detector.Detect(ctx, frame)
	if err != nil {
		log.Printf("recognition: detecting faces: %v", err)
		regions = nil
	}

	artifact := r.opts.Live.Load()
	var recognitions []Recognition
	for _, region := range regions {
		rec, ok := r.classify(ctx, frame, region, artifact, course, now)
		if !ok {
			continue
		}
		recognitions = append(recognitions, rec)
		r.annotate(canvas, region.Sub(origin), rec, artifact != nil)

		if rec.Kind == KindKnown && r.opts.Publisher != nil {
			r.opts.Publisher.PublishRecognition(rec)
		}
	}

	canvas.Text(10, 20, "Attendance System - Live", vision.ColorInfo)
	if artifact == nil {
		canvas.Text(10, 40, "No trained classifier", vision.ColorWarning)
	}

	return FrameResult{Recognitions: recognitions, Annotated: canvas.Image()}
}

func (r *Recognizer) classify(ctx context.Context, frame image.Image, region image.Rectangle, artifact *Artifact, course string, now time.Time) (Recognition, bool) {
	rec := Recognition{Region: region, Kind: KindUnknown, Score: math.NaN(), Course: course, At: now}

	face, err := vision.NormalizeFace(frame, region, r.opts.Policy.SampleSize)
	if err != nil {
		return rec, false
	}
	if artifact == nil {
		return rec, true
	}

	label, score := artifact.Classifier.Predict(face)
	rec.Score = score
	rec.Confidence = Confidence(score)

	if score < r.opts.Policy.MatchThreshold {
		if identity := r.resolve(ctx, artifact, label); identity != nil {
			rec.Kind = KindKnown
			rec.IdentityID = identity.ID
			rec.Name = identity.Name
			rec.Department = identity.Department

			date := r.opts.Ledger.DateOf(now)
			if err := r.opts.Ledger.Upsert(ctx, *identity, date, course, now); err != nil {
				log.Printf("recognition: recording attendance of %s: %v", identity.ID, err)
			} else {
				rec.Logged = true
			}
			return rec, true
		}
	}

	if score > r.opts.Policy.UnknownLogThreshold {
		if err := r.logSighting(ctx, frame, region, now); err != nil {
			log.Printf("recognition: logging unknown face: %v", err)
		} else {
			rec.Logged = true
		}
	}
	return rec, true
}

func (r *Recognizer) resolve(ctx context.Context, artifact *Artifact, label int) *database.StoredIdentity {
	id, ok := artifact.IdentityFor(label)
	if !ok {
		return nil
	}
	identity, err := r.opts.Identities.GetIdentity(ctx, id)
	if err != nil {
		log.Printf("recognition: looking up identity %s: %v", id, err)
		return nil
	}
	return identity
}

func (r *Recognizer) logSighting(ctx context.Context, frame image.Image, region image.Rectangle, now time.Time) error {
	crop, err := vision.Crop(frame, region)
	if err != nil {
		return err
	}
	data, err := vision.EncodeJPEG(crop)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.opts.UnknownDir, 0o755); err != nil {
		return fmt.Errorf("creating unknown faces directory: %w", err)
	}
	path := filepath.Join(r.opts.UnknownDir, "unknown_"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // crops are served to admins
		return fmt.Errorf("writing unknown face: %w", err)
	}

	if err := r.opts.Sightings.AddSighting(ctx, &database.Sighting{ImagePath: path, DetectedAt: now}); err != nil {
		return storageError("adding sighting", err)
	}
	return nil
}

func (r *Recognizer) annotate(canvas *vision.Canvas, box image.Rectangle, rec Recognition, classified bool) {
	col := vision.ColorUnknown
	title, subtitle := "Unknown Person", "Not Registered"
	if rec.Kind == KindKnown {
		col = vision.ColorKnown
		title = rec.Name
		subtitle = fmt.Sprintf("ID: %s | %s", rec.IdentityID, rec.Department)
	}

	canvas.Box(box, col, 3)
	canvas.Text(box.Min.X+5, box.Min.Y-24, title, col)
	canvas.Text(box.Min.X+5, box.Min.Y-8, subtitle, col)
	if classified {
		canvas.Text(box.Min.X+5, box.Max.Y+16, fmt.Sprintf("Confidence: %d%%", rec.Confidence), vision.ColorScore)
	}
}

// Run processes frames from source until it is exhausted or fails, ctx is
// cancelled, or sink returns an error. The source is closed on every path.
func (r *Recognizer) Run(ctx context.Context, source FrameSource, course string, sink FrameSink) error {
	defer source.Close()

	for {
		frame, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		result := r.ProcessFrame(ctx, frame, course)
		if sink != nil {
			if err := sink(result.Annotated); err != nil {
				return nil
			}
		}
	}
}
