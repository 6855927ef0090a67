package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Mark attendance from a directory of frames or the camera",
	Long: `Run recognition over frames and record attendance for every known face.
Unknown faces are saved as sightings. Press Ctrl+C to stop reading the camera.

Examples:
  face-attendance recognize --dir ./frames/lecture --course Physics
  face-attendance recognize --camera`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("course", constants.DefaultCourse, "Course recorded with new ledger rows")
	recognizeCmd.Flags().String("dir", "", "Directory of frames to recognize")
	recognizeCmd.Flags().Bool("camera", false, "Read frames from the camera at CAMERA_URL")
}

// consolePublisher prints every known recognition
type consolePublisher struct {
	seen int
}

func (p *consolePublisher) PublishRecognition(r attendance.Recognition) {
	p.seen++
	fmt.Printf("%s  %-10s %-24s %3d%%  %s\n",
		r.At.Local().Format(time.TimeOnly), r.IdentityID, r.Name, r.Confidence, r.Department)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	course, err := attendance.NormalizeCourse(mustGetString(cmd, "course"), constants.DefaultCourse)
	if err != nil {
		return err
	}

	a.loadClassifier(ctx)

	source, err := a.openFrameSource(ctx, mustGetString(cmd, "dir"), mustGetBool(cmd, "camera"), "recognize")
	if err != nil {
		return err
	}

	publisher := &consolePublisher{}
	frames := 0
	sink := func(_ image.Image) error {
		frames++
		return nil
	}

	fmt.Printf("Recognizing faces for course %q...\n", course)
	if err := a.newRecognizer(publisher).Run(ctx, source, course, sink); err != nil {
		return err
	}

	present, err := a.ledger.CountForDate(context.Background(), a.ledger.DateOf(time.Now()))
	if err != nil {
		return err
	}
	fmt.Printf("\nProcessed %d frames, %d known faces seen, %d present today\n", frames, publisher.seen, present)
	return nil
}
