// Package scheduler retrains the classifier on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// Trainer runs one training pass.
type Trainer interface {
	Train(ctx context.Context) (attendance.TrainResult, error)
}

// Scheduler runs Trainer on a cron expression. Runs never overlap.
type Scheduler struct {
	cron    *gocron.Scheduler
	job     *gocron.Job
	trainer Trainer

	mu   sync.Mutex
	ctx  context.Context
	last *attendance.TrainResult
}

// New creates a scheduler for a standard five-field cron expression
// evaluated in loc.
func New(expr string, trainer Trainer, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:    gocron.NewScheduler(loc),
		trainer: trainer,
		ctx:     context.Background(),
	}
	s.cron.SingletonModeAll()

	job, err := s.cron.Cron(expr).Tag("train").Do(s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid train schedule %q: %w", expr, err)
	}
	s.job = job
	return s, nil
}

// Start runs the schedule in the background. Scheduled runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.StartAsync()
}

// Stop stops the schedule.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextRun returns the time of the next scheduled training.
func (s *Scheduler) NextRun() time.Time {
	return s.job.NextRun()
}

// LastResult returns the result of the last successful scheduled run.
func (s *Scheduler) LastResult() *attendance.TrainResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	result, err := s.trainer.Train(ctx)
	switch {
	case errors.Is(err, attendance.ErrNoTrainingData):
		log.Printf("scheduled training: nothing to train")
	case errors.Is(err, attendance.ErrTrainingInProgress):
		log.Printf("scheduled training: skipped, another run is active")
	case err != nil:
		log.Printf("scheduled training failed: %v", err)
	default:
		log.Printf("scheduled training: %d identities, %d samples", result.IdentityCount, result.SampleCount)
		s.mu.Lock()
		s.last = &result
		s.mu.Unlock()
	}
}
