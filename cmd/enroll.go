package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <id> <name>",
	Short: "Enroll a person from a directory of frames or the camera",
	Long: `Enroll a new identity. Faces are captured from every frame until the
capture target is reached or the frames run out, then the identity is stored
if at least the minimum number of samples was collected.

Examples:
  # Capture from saved frames
  face-attendance enroll S001 "Alice Smith" --dir ./frames/alice

  # Capture from CAMERA_URL and retrain afterwards
  face-attendance enroll S002 "Bob" --department ECE --camera --train`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("department", "", "Department (defaults to the policy default)")
	enrollCmd.Flags().String("semester", "", "Semester")
	enrollCmd.Flags().String("section", "", "Section")
	enrollCmd.Flags().String("dir", "", "Directory of frames to capture from")
	enrollCmd.Flags().Bool("camera", false, "Capture from the camera at CAMERA_URL")
	enrollCmd.Flags().Bool("train", false, "Retrain the classifier after enrolling")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.enrollment.Begin(ctx, attendance.PendingIdentity{
		ID:         args[0],
		Name:       args[1],
		Department: mustGetString(cmd, "department"),
		Semester:   mustGetString(cmd, "semester"),
		Section:    mustGetString(cmd, "section"),
	})
	if err != nil {
		return err
	}

	source, err := a.openFrameSource(ctx, mustGetString(cmd, "dir"), mustGetBool(cmd, "camera"), "enroll")
	if err != nil {
		a.capture.Abort(status.Generation)
		a.enrollment.Cancel()
		return err
	}

	bar := progressbar.NewOptions(status.Target,
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionFullWidth(),
	)
	sink := func(_ image.Image) error {
		_ = bar.Set(a.capture.Status().Count)
		return nil
	}
	status = a.capture.Run(ctx, source, sink)
	_ = bar.Finish()
	fmt.Println()

	result, err := a.enrollment.Finalize(ctx)
	if errors.Is(err, attendance.ErrInsufficientSamples) {
		a.enrollment.Cancel()
		return fmt.Errorf("only %d faces captured, at least %d are required", status.Count, a.cfg.Policy.MinSamples)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled %s (%s, %s) with %d samples\n",
		result.Identity.ID, result.Identity.Name, result.Identity.Department, result.SampleCount)
	if result.BackupDir != "" {
		fmt.Printf("Samples backed up to %s\n", result.BackupDir)
	}

	if !mustGetBool(cmd, "train") {
		fmt.Println("Run 'face-attendance train' to include this identity in recognition")
		return nil
	}
	trained, err := a.training.Train(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	fmt.Printf("Trained on %d identities with %d samples\n", trained.IdentityCount, trained.SampleCount)
	return nil
}
