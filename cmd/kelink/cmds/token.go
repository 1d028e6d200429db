package cmds

import (
	"fmt"
	"kelink/internal/telegram"
	"kelink/internal/types"
	"os"

	"github.com/spf13/cobra"
)

// NewCheckTokenCommand prints BOT_TOKEN quoted so stray whitespace shows, and fails when its
// format is wrong.
func NewCheckTokenCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-token",
		Short: "Check the format of BOT_TOKEN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, set := os.LookupEnv(BotTokenKey)
			out := cmd.OutOrStdout()
			if !set {
				_, _ = fmt.Fprintln(out, "TOKEN : not set")
				return types.Err(types.ErrInvalidConfig, nil, "%s is not set", BotTokenKey)
			}
			valid := telegram.ValidToken(tok)
			_, _ = fmt.Fprintf(out, "TOKEN : %q\nLENGTH: %d\nFORMAT: %t\n", tok, len(tok), valid)
			if !valid {
				return types.Err(types.ErrInvalidConfig, nil, "%s is malformed", BotTokenKey)
			}
			return nil
		},
	}
}
