package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// AttendanceHandler serves live recognition and the daily ledger
type AttendanceHandler struct {
	recognizer *attendance.Recognizer
	ledger     *attendance.Ledger
	camera     *camera.Guard
	feed       *RecognitionFeed
	now        func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(recognizer *attendance.Recognizer, ledger *attendance.Ledger, guard *camera.Guard, feed *RecognitionFeed) *AttendanceHandler {
	return &AttendanceHandler{
		recognizer: recognizer,
		ledger:     ledger,
		camera:     guard,
		feed:       feed,
		now:        time.Now,
	}
}

// LedgerEntryResponse is one attendance row
type LedgerEntryResponse struct {
	IdentityID string    `json:"student_id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Course     string    `json:"course"`
	Date       string    `json:"date"`
	InTime     time.Time `json:"in_time"`
	OutTime    time.Time `json:"out_time"`
}

func ledgerEntryToResponse(e database.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		IdentityID: e.IdentityID,
		Name:       e.Name,
		Department: e.Department,
		Course:     e.Course,
		Date:       e.Date,
		InTime:     e.CreatedAt,
		OutTime:    e.LastSeen,
	}
}

// FrameResponse is the JSON form of a processed frame
type FrameResponse struct {
	Course       string                   `json:"course"`
	Recognitions []attendance.Recognition `json:"recognitions"`
}

// Frames recognizes faces in one uploaded frame. The annotated frame is
// returned as JPEG, or the recognitions as JSON with ?format=json.
func (h *AttendanceHandler) Frames(w http.ResponseWriter, r *http.Request) {
	course, err := courseParam(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	frame, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.recognizer.ProcessFrame(r.Context(), frame, course)

	if r.URL.Query().Get("format") == "json" {
		recognitions := result.Recognitions
		if recognitions == nil {
			recognitions = []attendance.Recognition{}
		}
		respondJSON(w, http.StatusOK, FrameResponse{Course: course, Recognitions: recognitions})
		return
	}

	data, err := vision.EncodeJPEG(result.Annotated)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Feed runs recognition on the server camera and streams annotated frames
// as MJPEG until the client disconnects.
func (h *AttendanceHandler) Feed(w http.ResponseWriter, r *http.Request) {
	course, err := courseParam(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	source, err := h.camera.Acquire(r.Context(), "recognition")
	if err != nil {
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

	if err := h.recognizer.Run(r.Context(), source, course, stream.WriteFrame); err != nil {
		log.Printf("recognition feed: %v", err)
	}
}

// Events streams known recognitions via SSE
func (h *AttendanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamBroadcast(w, r, &h.feed.EventBroadcaster)
}

// Today lists today's attendance rows, most recently seen first
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	entries, err := h.ledger.Today(r.Context(), now)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = ledgerEntryToResponse(e)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    h.ledger.DateOf(now),
		"entries": resp,
	})
}
