package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <all|identities|attendance>",
	Short: "Delete stored identities and/or attendance",
	Long: `Delete stored data.

  identities  removes every identity, its samples and the trained classifier
  attendance  removes every ledger row
  all         both of the above plus unknown sightings

This cannot be undone.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"all", "identities", "attendance"},
	RunE:      runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	scope := args[0]
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var reset func(context.Context) error
	switch scope {
	case "all":
		reset = a.admin.ResetAll
	case "identities":
		reset = a.admin.ResetIdentities
	case "attendance":
		reset = a.admin.ResetAttendance
	default:
		return fmt.Errorf("unknown reset scope %q (want all, identities or attendance)", scope)
	}

	if !mustGetBool(cmd, "yes") {
		if !confirmAction(fmt.Sprintf("This will permanently delete %s data. Continue? [y/N]: ", scope)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Printf("Reset %s complete\n", scope)
	return nil
}
