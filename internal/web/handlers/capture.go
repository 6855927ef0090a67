package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
)

// CaptureHandler drives the enrollment capture session
type CaptureHandler struct {
	capture *attendance.CaptureSession
	camera  *camera.Guard
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(capture *attendance.CaptureSession, guard *camera.Guard) *CaptureHandler {
	return &CaptureHandler{
		capture: capture,
		camera:  guard,
	}
}

// Start begins a new capture, discarding any samples collected so far
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.capture.Start())
}

// Status returns the current capture state and sample count
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.capture.Status())
}

// Frames ingests one uploaded frame
func (h *CaptureHandler) Frames(w http.ResponseWriter, r *http.Request) {
	frame, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.capture.Ingest(r.Context(), frame)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Feed pulls frames from the server camera into the capture session and
// streams the annotated preview as MJPEG until the target is reached or the
// client disconnects. When the camera cannot be opened the session is
// completed with the samples collected so far.
func (h *CaptureHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h.capture.Status().State != attendance.StateCapturing {
		respondDomainError(w, r, attendance.ErrNotCapturing)
		return
	}

	generation := h.capture.Status().Generation
	source, err := h.camera.Acquire(r.Context(), "capture")
	if err != nil {
		// An unavailable source completes the session with what it holds.
		status := h.capture.Abort(generation)
		log.Printf("capture feed unavailable: %v (count=%d/%d)", err, status.Count, status.Target)
		respondDomainError(w, r, err)
		return
	}

	clearWriteDeadline(w)
	stream, err := camera.NewMJPEGWriter(w)
	if err != nil {
		source.Close()
		respondError(w, http.StatusInternalServerError, "failed to start stream")
		return
	}
	defer stream.Close()

	status := h.capture.Run(r.Context(), source, stream.WriteFrame)
	log.Printf("capture feed ended: state=%s count=%d/%d", status.State, status.Count, status.Target)
}
