package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, attendance.ErrInvalidName),
		errors.Is(err, attendance.ErrInvalidIdentity),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrInvalidCourse),
		errors.Is(err, attendance.ErrFieldTooLong):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrNoPendingIdentity):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrDuplicateIdentity),
		errors.Is(err, attendance.ErrTrainingInProgress),
		errors.Is(err, attendance.ErrNotCapturing):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrInsufficientSamples),
		errors.Is(err, attendance.ErrNoTrainingData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrResourceUnavailable),
		errors.Is(err, attendance.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError sends err with the status it maps to. Unexpected errors
// are logged and hidden from the client.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, status, "internal error")
		return
	}
	if status == http.StatusServiceUnavailable {
		log.Printf("%s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
	}
	respondError(w, status, err.Error())
}

// readFrame decodes the frame of a request. The frame is either the raw body
// or the "frame" field of a multipart form.
func readFrame(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxFrameSize)

	var data []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(constants.MaxFrameSize); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("frame")
		if err != nil {
			return nil, errors.New("frame is required")
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
	} else {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
	}

	if len(data) == 0 {
		return nil, errors.New("frame is required")
	}
	return vision.DecodeFrame(data)
}

// courseParam returns the course query parameter or the default course.
func courseParam(r *http.Request) (string, error) {
	return attendance.NormalizeCourse(r.URL.Query().Get("course"), constants.DefaultCourse)
}

// clearWriteDeadline lifts the server write timeout for long-lived streams.
func clearWriteDeadline(w http.ResponseWriter) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
}
