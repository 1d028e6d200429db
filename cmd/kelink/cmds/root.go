// Package cmds holds the kelink command line: the bot server and the operator commands that
// share its store and policy configuration.
package cmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	EnvFileKey    = "ENV_FILE"
	PolicyFileKey = "POLICY_FILE"
	LogLevelKey   = "LOG_LEVEL"
	LogFormatKey  = "LOG_FORMAT"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	PolicyFile string
}

// NewRootCommand creates the root command for the kelink CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kelink",
		Short: "kelink - link-sharing reciprocity bot",
		Long: `kelink enforces a link-sharing etiquette in a group chat: a daily quota of links per
user, and no new link before every other member's link from the trailing window has been
acknowledged with a reaction or a reply.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()
			if opts.PolicyFile == "" {
				opts.PolicyFile = os.Getenv(PolicyFileKey)
			}
			return configureLogging(opts.Verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.PolicyFile, "policy", "p", "", "policy YAML file (default $POLICY_FILE)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewGraceCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCheckTokenCommand(opts))

	return cmd
}

// loadEnv reads the .env file. Variables already set in the environment win.
func loadEnv() {
	envFile := os.Getenv(EnvFileKey)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("The .env file not found.")
	}
}

func configureLogging(verbose bool) error {
	if strings.EqualFold(os.Getenv(LogFormatKey), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level := log.InfoLevel
	if s := os.Getenv(LogLevelKey); s != "" {
		l, err := log.ParseLevel(s)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", LogLevelKey, s, err)
		}
		level = l
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	return nil
}
