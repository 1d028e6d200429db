package cmds

import (
	"context"
	"fmt"
	"kelink/internal/api"
	"kelink/internal/flow"
	"kelink/internal/telegram"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	HTTPPort int
}

// NewServeCommand creates the serve command: the Telegram bot plus the HTTP surface.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the HTTP surface",
		Long: `Connects to Telegram with BOT_TOKEN, TG_APP_ID and TG_APP_HASH and enforces the policy on
every group the bot is in. The HTTP surface serves /health, /status and a /events webhook;
--http-port 0 disables it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("http-port") {
				port, err := envInt(HTTPPortKey, DefaultHTTPPort)
				if err != nil {
					return fmt.Errorf("invalid %s: %w", HTTPPortKey, err)
				}
				opts.HTTPPort = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, opts)
		},
	}
	cmd.Flags().IntVar(&opts.HTTPPort, "http-port", DefaultHTTPPort, "HTTP port (default $HTTP_PORT or 8080, 0 disables)")
	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *ServeOptions) error {
	appID, err := envInt(AppIDKey, 0)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", AppIDKey, err)
	}
	bot, err := telegram.NewBot(telegram.Config{
		AppID:       appID,
		AppHash:     os.Getenv(AppHashKey),
		BotToken:    os.Getenv(BotTokenKey),
		SessionFile: os.Getenv(SessionFileKey),
	})
	if err != nil {
		return err
	}
	engine, err := engineFromEnv(rootOpts)
	if err != nil {
		return err
	}
	auditor, err := auditorFromEnv(ctx)
	if err != nil {
		return err
	}

	deadline, err := engine.EnsureGrace(ctx, time.Now())
	if err != nil {
		return err
	}
	logger := log.WithField("policy", engine.Config().String())
	if !deadline.IsZero() {
		logger = logger.WithField("enforce_after", deadline)
	}
	logger.Info("starting kelink")

	dispatcher := flow.NewDispatcher(engine, bot.Messenger(), auditor)

	if opts.HTTPPort > 0 {
		stopHTTP, done := api.RunServerInterruptible(opts.HTTPPort, api.NewHandler(engine, dispatcher, os.Getenv(WebhookSecret)))
		defer func() {
			close(stopHTTP)
			if err := <-done; err != nil {
				log.WithError(err).Error("http server stopped")
			}
		}()
	}
	return bot.Run(ctx, dispatcher, nil)
}
