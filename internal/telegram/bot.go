// Package telegram connects the dispatcher to a Telegram group through an MTProto bot session.
package telegram

import (
	"context"
	"fmt"
	"kelink/internal/flow"
	"kelink/internal/types"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	AppID       int
	AppHash     string
	BotToken    string
	SessionFile string // empty keeps the session in memory
}

func (c Config) Validate() error {
	if c.AppID == 0 || c.AppHash == "" {
		return types.Err(types.ErrInvalidConfig, nil, "telegram app id and hash are required")
	}
	if !ValidToken(c.BotToken) {
		return types.Err(types.ErrInvalidConfig, nil, "malformed bot token")
	}
	return nil
}

// Bot owns the MTProto client. Inbound updates go to a flow.Dispatcher; the Messenger serves
// the dispatcher's outbound calls over the same connection.
type Bot struct {
	cfg       Config
	client    *telegram.Client
	updates   tg.UpdateDispatcher
	peers     *peerCache
	messenger *Messenger
}

func NewBot(cfg Config) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var storage session.Storage = &session.StorageMemory{}
	if cfg.SessionFile != "" {
		storage = &session.FileStorage{Path: cfg.SessionFile}
	}
	updates := tg.NewUpdateDispatcher()
	client := telegram.NewClient(cfg.AppID, cfg.AppHash, telegram.Options{
		SessionStorage: storage,
		UpdateHandler:  updates,
	})
	peers := newPeerCache()
	return &Bot{
		cfg:       cfg,
		client:    client,
		updates:   updates,
		peers:     peers,
		messenger: newMessenger(client.API(), peers),
	}, nil
}

// Messenger is usable once Run has connected.
func (b *Bot) Messenger() *Messenger {
	return b.messenger
}

// Run logs in with the bot token, routes updates to d and blocks until ctx is done.
// onReady, if set, runs once the session is authorized.
func (b *Bot) Run(ctx context.Context, d *flow.Dispatcher, onReady func(ctx context.Context) error) error {
	b.updates.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		b.handle(ctx, d, e, messageEvent(e, u.Message))
		return nil
	})
	b.updates.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		b.handle(ctx, d, e, messageEvent(e, u.Message))
		return nil
	})
	b.updates.OnBotMessageReaction(func(ctx context.Context, e tg.Entities, u *tg.UpdateBotMessageReaction) error {
		if ev := reactionEvent(u); ev != nil {
			b.handle(ctx, d, e, ev)
		}
		return nil
	})

	return b.client.Run(ctx, func(ctx context.Context) error {
		status, err := b.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := b.client.Auth().Bot(ctx, b.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login: %w", err)
			}
		}
		// The server starts pushing updates after the first state request.
		if _, err := b.client.API().UpdatesGetState(ctx); err != nil {
			return fmt.Errorf("updates state: %w", err)
		}
		log.WithField("appID", b.cfg.AppID).Info("telegram bot connected")
		if onReady != nil {
			if err := onReady(ctx); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return nil
	})
}

// handle never fails the update: the dispatcher already logged the outcome, and returning an
// error to the client would only log it again.
func (b *Bot) handle(ctx context.Context, d *flow.Dispatcher, e tg.Entities, ev any) {
	b.peers.remember(e)
	if ev == nil {
		return
	}
	status, err := d.Dispatch(ctx, ev)
	if err != nil {
		return
	}
	log.WithField("status", status.String()).Debug("update handled")
}
