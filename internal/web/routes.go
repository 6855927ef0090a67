package web

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
)

func (s *Server) setupRoutes() {
	svc := s.services

	// Create handlers
	healthHandler := handlers.NewHealthHandler(svc.Backend)
	authHandler := handlers.NewAuthHandler(s.config.Auth, s.issuer)
	statsHandler := handlers.NewStatsHandler(svc.Backend, svc.Ledger, svc.Training.Live())
	identitiesHandler := handlers.NewIdentitiesHandler(svc.Backend)
	sightingsHandler := handlers.NewSightingsHandler(svc.Backend)
	enrollmentHandler := handlers.NewEnrollmentHandler(svc.Enrollment)
	captureHandler := handlers.NewCaptureHandler(svc.Capture, svc.Camera)
	trainingHandler := handlers.NewTrainingHandler(svc.Training, s.jobManager)
	attendanceHandler := handlers.NewAttendanceHandler(svc.Recognizer, svc.Ledger, svc.Camera, svc.Feed)
	reportsHandler := handlers.NewReportsHandler(svc.Reports)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Long-lived streams run without the request timeout
		r.Get("/capture/feed", captureHandler.Feed)
		r.Get("/attendance/feed", attendanceHandler.Feed)
		r.Get("/attendance/events", attendanceHandler.Events)
		r.Get("/training/jobs/{jobId}/events", trainingHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(2 * time.Minute))

			r.Get("/health", healthHandler.Get)
			r.Get("/stats", statsHandler.Get)

			// Auth
			r.Post("/auth/login", authHandler.Login)
			r.Get("/auth/status", authHandler.Status)

			// Identities and enrollment
			r.Get("/identities", identitiesHandler.List)
			r.Get("/enrollment", enrollmentHandler.Get)
			r.Post("/enrollment", enrollmentHandler.Begin)
			r.Delete("/enrollment", enrollmentHandler.Cancel)
			r.Post("/enrollment/finalize", enrollmentHandler.Finalize)

			// Capture
			r.Post("/capture/start", captureHandler.Start)
			r.Post("/capture/frames", captureHandler.Frames)
			r.Get("/capture/status", captureHandler.Status)

			// Training
			r.Get("/training", trainingHandler.Get)
			r.Post("/training", trainingHandler.Train)
			r.Post("/training/jobs", trainingHandler.StartJob)
			r.Get("/training/jobs/{jobId}", trainingHandler.GetJob)
			r.Delete("/training/jobs/{jobId}", trainingHandler.CancelJob)

			// Attendance
			r.Post("/attendance/frames", attendanceHandler.Frames)
			r.Get("/attendance/today", attendanceHandler.Today)
			r.Get("/sightings", sightingsHandler.List)

			// Reports
			r.Get("/reports/{date}", reportsHandler.Get)
			r.Get("/reports/{date}/csv", reportsHandler.CSV)

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(s.issuer))
				r.Post("/admin/reset/{scope}", adminHandler.Reset)
			})
		})
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the embedded dashboard. Unknown non-asset paths get
// index.html so client-side routes survive a reload.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		respondText(w, http.StatusNotFound, "dashboard not embedded; the API is served under /api/v1")
		return
	}

	fsys := static.GetFileSystem()
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}
	if serveStaticFile(w, fsys, path) {
		return
	}
	if !strings.HasPrefix(path, "/assets/") && serveStaticFile(w, fsys, "/index.html") {
		return
	}
	http.NotFound(w, r)
}

func serveStaticFile(w http.ResponseWriter, fsys http.FileSystem, path string) bool {
	f, err := fsys.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return false
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	// Add cache headers for static assets
	if strings.HasPrefix(path, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
	return true
}

func respondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text+"\n")
}
