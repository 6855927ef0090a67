package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Services are the attendance components exposed over HTTP
type Services struct {
	Backend    database.Backend
	Capture    *attendance.CaptureSession
	Enrollment *attendance.Enrollment
	Training   *attendance.Training
	Ledger     *attendance.Ledger
	Reports    *attendance.Reports
	Recognizer *attendance.Recognizer
	Admin      *attendance.Admin
	Camera     *camera.Guard
	// Feed must be the recognizer's publisher for the event stream to see recognitions
	Feed *handlers.RecognitionFeed
}

// Server represents the web server
type Server struct {
	config     *config.Config
	services   Services
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
	issuer     *middleware.TokenIssuer
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, services Services) *Server {
	r := chi.NewRouter()

	if services.Feed == nil {
		services.Feed = handlers.NewRecognitionFeed()
	}

	var issuer *middleware.TokenIssuer
	if cfg.Auth.AdminEnabled() {
		issuer = middleware.NewTokenIssuer(cfg.Auth.JWTKey, constants.AdminTokenTTLHours*time.Hour)
	}

	s := &Server{
		config:     cfg,
		services:   services,
		router:     r,
		jobManager: handlers.NewJobManager(),
		issuer:     issuer,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // stream handlers lift this per request
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
