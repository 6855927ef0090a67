package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/scheduler"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.

The server exposes enrollment, training, live recognition and reports under
/api/v1. When CAMERA_URL is set, the capture and recognition feeds pull frames
from that MJPEG camera. When TRAIN_SCHEDULE is set, the classifier is
retrained on that cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	a.loadClassifier(ctx)
	if !a.camera.Available() {
		fmt.Println("No CAMERA_URL configured; frames must be posted by clients")
	}

	if a.cfg.TrainSchedule != "" {
		sched, err := scheduler.New(a.cfg.TrainSchedule, a.training, time.Local)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
		if next := sched.NextRun(); !next.IsZero() {
			fmt.Printf("Scheduled training enabled, next run at %s\n", next.Format(time.DateTime))
		}
	}

	feed := handlers.NewRecognitionFeed()
	server := web.NewServer(a.cfg, web.Services{
		Backend:    a.backend,
		Capture:    a.capture,
		Enrollment: a.enrollment,
		Training:   a.training,
		Ledger:     a.ledger,
		Reports:    a.reports,
		Recognizer: a.newRecognizer(feed),
		Admin:      a.admin,
		Camera:     a.camera,
		Feed:       feed,
	})
	if !a.cfg.Auth.AdminEnabled() {
		fmt.Println("Admin routes disabled: set JWT_KEY and ADMIN_PASSWORD_HASH to enable them")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
