package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// TrainingHandler rebuilds the classifier
type TrainingHandler struct {
	training *attendance.Training
	jobs     *JobManager
}

// NewTrainingHandler creates a new training handler
func NewTrainingHandler(training *attendance.Training, jobs *JobManager) *TrainingHandler {
	return &TrainingHandler{
		training: training,
		jobs:     jobs,
	}
}

// ArtifactInfo describes the classifier currently used for recognition
type ArtifactInfo struct {
	Trained       bool       `json:"trained"`
	TrainedAt     *time.Time `json:"trained_at,omitempty"`
	IdentityCount int        `json:"identity_count"`
	SampleCount   int        `json:"sample_count"`
}

func artifactInfo(live *attendance.LiveArtifact) ArtifactInfo {
	a := live.Load()
	if a == nil {
		return ArtifactInfo{}
	}
	trainedAt := a.TrainedAt
	return ArtifactInfo{
		Trained:       true,
		TrainedAt:     &trainedAt,
		IdentityCount: a.IdentityCount,
		SampleCount:   a.SampleCount,
	}
}

// Get returns information about the live classifier
func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, artifactInfo(h.training.Live()))
}

// Train runs a training synchronously and returns its result
func (h *TrainingHandler) Train(w http.ResponseWriter, r *http.Request) {
	result, err := h.training.Train(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// StartJobResponse is returned when a training job is queued
type StartJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// StartJob runs a training in the background. Progress is available through
// the job's event stream.
func (h *TrainingHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.CreateJob(uuid.New().String())

	// The job outlives the request.
	ctx, cancel := context.WithCancel(context.Background())
	job.setRunning(cancel)

	go func() {
		defer cancel()
		result, err := h.training.TrainWithProgress(ctx, job.progress)
		if err != nil {
			log.Printf("training job %s: %v", job.ID, err)
		}
		job.finish(result, err)
	}()

	respondJSON(w, http.StatusAccepted, StartJobResponse{
		JobID:  job.ID,
		Status: job.GetStatus(),
	})
}

// GetJob returns the state of a training job
func (h *TrainingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// Events streams training job progress via SSE
func (h *TrainingHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobs.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(j SSEJob) any {
			job, ok := j.(*TrainJob)
			if !ok {
				return nil
			}
			return job.View()
		},
	)
}

// CancelJob cancels a running training job
func (h *TrainingHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobs.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusBadRequest, "job is not running")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}
