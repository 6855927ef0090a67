package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the face classifier on every enrolled identity",
	Long: `Train the face classifier on the samples of every enrolled identity and
save it to ARTIFACT_PATH. A running server picks the new classifier up on
its next training or restart.

Examples:
  face-attendance train
  face-attendance train --json`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

func runTrain(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if jsonOutput {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Loading samples"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("identities"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}

	result, err := a.training.TrainWithProgress(ctx, progress)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if errors.Is(err, attendance.ErrNoTrainingData) {
		return errors.New("no enrolled identities; enroll someone first")
	}
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Trained on %d identities with %d samples\n", result.IdentityCount, result.SampleCount)
	fmt.Printf("Classifier saved to %s\n", a.store.Path())
	return nil
}
