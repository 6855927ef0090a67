package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobEvent represents an event from a job or a live feed.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// ListenerCount returns the number of connected listeners.
func (b *EventBroadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// TrainJob is an asynchronous training run.
type TrainJob struct {
	EventBroadcaster

	ID          string
	status      JobStatus
	done        int
	total       int
	err         string
	startedAt   time.Time
	completedAt *time.Time
	result      *attendance.TrainResult
}

// TrainJobView is the JSON form of a TrainJob.
type TrainJobView struct {
	ID          string                  `json:"id"`
	Status      JobStatus               `json:"status"`
	Loaded      int                     `json:"loaded"`
	Total       int                     `json:"total"`
	Error       string                  `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Result      *attendance.TrainResult `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *TrainJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// View returns a consistent copy of the job state.
func (j *TrainJob) View() TrainJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return TrainJobView{
		ID:          j.ID,
		Status:      j.status,
		Loaded:      j.done,
		Total:       j.total,
		Error:       j.err,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		Result:      j.result,
	}
}

// Cancel cancels the training job.
func (j *TrainJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	if j.status == JobStatusPending || j.status == JobStatusRunning {
		j.status = JobStatusCancelled
	}
	j.mu.Unlock()
}

func (j *TrainJob) setRunning(cancel context.CancelFunc) {
	j.mu.Lock()
	j.status = JobStatusRunning
	j.cancel = cancel
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "started", Message: "Training started"})
}

func (j *TrainJob) progress(done, total int) {
	j.mu.Lock()
	j.done, j.total = done, total
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "progress", Data: map[string]int{"loaded": done, "total": total}})
}

func (j *TrainJob) finish(result attendance.TrainResult, err error) {
	now := time.Now()
	j.mu.Lock()
	j.completedAt = &now
	switch {
	case j.status == JobStatusCancelled:
	case err != nil:
		j.status = JobStatusFailed
		j.err = err.Error()
	default:
		j.status = JobStatusCompleted
		j.result = &result
	}
	status := j.status
	j.mu.Unlock()

	switch status {
	case JobStatusCompleted:
		j.SendEvent(JobEvent{Type: "completed", Data: result})
	case JobStatusFailed:
		j.SendEvent(JobEvent{Type: "job_error", Message: err.Error()})
	}
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*TrainJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainJob),
	}
}

// CreateJob creates a new training job.
func (m *JobManager) CreateJob(id string) *TrainJob {
	job := &TrainJob{
		ID:        id,
		status:    JobStatusPending,
		startedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// RecognitionFeed broadcasts known recognitions to SSE listeners.
type RecognitionFeed struct {
	EventBroadcaster
}

// NewRecognitionFeed creates an empty feed.
func NewRecognitionFeed() *RecognitionFeed {
	return &RecognitionFeed{}
}

// PublishRecognition implements attendance.EventPublisher.
func (f *RecognitionFeed) PublishRecognition(r attendance.Recognition) {
	f.SendEvent(JobEvent{Type: "recognition", Data: r})
}
