package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/lbph"

	// Database drivers register themselves with the database package
	_ "github.com/kozaktomas/face-attendance/internal/database/mariadb"
	_ "github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// app holds the components shared by every command
type app struct {
	cfg        *config.Config
	backend    database.Backend
	detector   *detector.Client
	store      *lbph.FileStore
	live       *attendance.LiveArtifact
	camera     *camera.Guard
	capture    *attendance.CaptureSession
	enrollment *attendance.Enrollment
	training   *attendance.Training
	ledger     *attendance.Ledger
	reports    *attendance.Reports
	admin      *attendance.Admin
}

// openApp loads the configuration, connects to the database and wires the
// attendance components. The caller must Close the app.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to %s database...\n", cfg.Database.Driver)
	backend, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	policy := cfg.Policy
	params := lbph.Params{
		Radius:    policy.LBPH.Radius,
		Neighbors: policy.LBPH.Neighbors,
		GridX:     policy.LBPH.GridX,
		GridY:     policy.LBPH.GridY,
	}

	a := &app{
		cfg:      cfg,
		backend:  backend,
		detector: detector.NewClient(cfg.Detector),
		store:    lbph.NewFileStore(cfg.Storage.ArtifactPath),
		live:     &attendance.LiveArtifact{},
		camera:   camera.NewGuard(camera.HTTPOpener(cfg.Camera.URL)),
	}
	a.capture = attendance.NewCaptureSession(a.detector, policy)
	a.enrollment = attendance.NewEnrollment(a.capture, backend, policy, cfg.Storage.SamplesDir)
	a.training = attendance.NewTraining(backend, lbph.NewTrainer(params), a.store, a.live)
	a.ledger = attendance.NewLedger(backend, time.Local)
	a.reports = attendance.NewReports(backend, a.ledger)
	a.admin = attendance.NewAdmin(backend, a.store, a.live, cfg.Storage.SamplesDir, cfg.Storage.UnknownDir)
	return a, nil
}

// newRecognizer creates a recognizer publishing known faces to publisher
func (a *app) newRecognizer(publisher attendance.EventPublisher) *attendance.Recognizer {
	return attendance.NewRecognizer(attendance.RecognizerOptions{
		Detector:   a.detector,
		Live:       a.live,
		Identities: a.backend,
		Ledger:     a.ledger,
		Sightings:  a.backend,
		Policy:     a.cfg.Policy,
		UnknownDir: a.cfg.Storage.UnknownDir,
		Publisher:  publisher,
	})
}

// loadClassifier makes the persisted classifier live, if there is one
func (a *app) loadClassifier(ctx context.Context) {
	artifact, err := a.training.LoadLive(ctx)
	switch {
	case err != nil:
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Recognition will report every face as unknown until the next training")
	case artifact == nil:
		fmt.Println("No trained classifier found; run 'face-attendance train' after enrolling")
	default:
		fmt.Printf("Loaded classifier with %d identities (%d samples, trained %s)\n",
			artifact.IdentityCount, artifact.SampleCount, artifact.TrainedAt.Local().Format(time.DateTime))
	}
}

// openFrameSource opens frames from a directory or the configured camera
func (a *app) openFrameSource(ctx context.Context, dir string, useCamera bool, owner string) (attendance.FrameSource, error) {
	switch {
	case dir != "" && useCamera:
		return nil, errors.New("--dir and --camera are mutually exclusive")
	case dir != "":
		src, err := camera.OpenDir(dir)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Reading %d frames from %s\n", src.Len(), dir)
		return src, nil
	case useCamera:
		return a.camera.Acquire(ctx, owner)
	default:
		return nil, errors.New("either --dir or --camera is required")
	}
}

// Close releases the database connection
func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		fmt.Printf("Warning: closing database: %v\n", err)
	}
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
