package cmds

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// NewStatusCommand prints the quota and open obligations of one user.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show a user's daily count and unacknowledged posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFromEnv(rootOpts)
			if err != nil {
				return err
			}
			st, err := engine.Status(cmd.Context(), args[0], time.Now())
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}
}
