package cmds

import (
	"fmt"
	"kelink/internal/flow"
	"time"

	"github.com/spf13/cobra"
)

// NewGraceCommand creates the grace command group.
func NewGraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grace",
		Short: "Inspect or restart the grace period",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the grace deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFromEnv(rootOpts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !engine.Config().Grace {
				_, err = fmt.Fprintln(out, "always strict: no grace period")
				return err
			}
			deadline, found, err := engine.GraceDeadline(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				_, err = fmt.Fprintln(out, "grace period not started")
				return err
			}
			state := "over"
			if time.Now().Before(deadline) {
				state = "active"
			}
			_, err = fmt.Fprintf(out, "enforce after %s (%s)\n", deadline.UTC().Format(time.RFC3339), state)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Start a new grace period now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFromEnv(rootOpts)
			if err != nil {
				return err
			}
			if !engine.Config().Grace {
				return fmt.Errorf("policy %s has no grace period", engine.Config().Scope)
			}
			deadline, err := engine.ResetGrace(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "grace period restarted for %s, enforce after %s\n",
				flow.HumanWindow(engine.Config().Window()), deadline.UTC().Format(time.RFC3339))
			return err
		},
	})
	return cmd
}
