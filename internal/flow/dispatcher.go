package flow

import (
	"context"
	"errors"
	"fmt"
	"kelink/internal/policy"
	"kelink/internal/ports"
	"kelink/internal/types"
	"time"

	log "github.com/sirupsen/logrus"
)

// DedupTTL is how long a handled update id is remembered.
const DedupTTL = 10 * time.Minute

// Auditor receives every rendered decision. original is the text of the link message.
type Auditor interface {
	Publish(ctx context.Context, ev types.AuditEvent, original string) error
}

// Dispatcher turns chat events into policy calls and the chat actions that follow them.
type Dispatcher struct {
	engine    *policy.Engine
	messenger ports.Messenger
	auditor   Auditor
	seen      *TTL[string, struct{}]
}

// NewDispatcher wires the engine to a messenger. auditor may be nil.
func NewDispatcher(engine *policy.Engine, messenger ports.Messenger, auditor Auditor) *Dispatcher {
	return &Dispatcher{
		engine:    engine,
		messenger: messenger,
		auditor:   auditor,
		seen:      NewTTL[string, struct{}](),
	}
}

// Dispatch routes an event produced by ParseUpdate or the chat transport.
func (d *Dispatcher) Dispatch(ctx context.Context, ev any) (Status, error) {
	switch e := ev.(type) {
	case *types.LinkEvent:
		return d.HandleLink(ctx, *e)
	case *types.ReplyEvent:
		return d.HandleReply(ctx, *e)
	case *types.ReactionEvent:
		return d.HandleReaction(ctx, *e)
	case nil:
		return Ignored, nil
	default:
		return Ignored, types.Err(types.ErrMalformedEvent, nil, "unsupported event %T", ev)
	}
}

// HandleLink evaluates a link message. Whatever the outcome, the original message is deleted;
// an admitted link is reposted with a button, a rejected one earns its poster a direct notice.
// A store failure returns the error with no chat action taken, so the update can be retried.
func (d *Dispatcher) HandleLink(ctx context.Context, ev types.LinkEvent) (Status, error) {
	logger := log.WithFields(log.Fields{
		"updateID":  ev.UpdateID,
		"userID":    ev.UserID,
		"chatID":    ev.ChatID,
		"messageID": ev.MessageID,
	})
	if ev.UserID == "" || ev.ChatID == "" || ev.MessageID == "" {
		return d.drop(logger, types.Err(types.ErrMalformedEvent, nil, "link event without user, chat or message id"))
	}
	if !policy.IsLink(ev.Text) {
		return Ignored, nil
	}
	if !d.claim(ev.UpdateID) {
		logger.Debug("duplicate update")
		return Duplicate, nil
	}
	at := ev.At
	if at.IsZero() {
		at = timeNow()
	}

	cfg := d.engine.Config()
	name := displayName(ev.DisplayName, ev.UserID)
	var reposted string
	repost := func(ctx context.Context, count int) (string, error) {
		vars := noticeVars{limit: cfg.DailyLimit, count: count, user: name}
		id, err := d.messenger.Send(ctx, ports.OutboundMessage{
			ChatID:        ev.ChatID,
			Text:          vars.render(cfg.Notices.Repost),
			Mention:       name,
			MentionUserID: ev.UserID,
			ButtonText:    cfg.Notices.Button,
			ButtonURL:     policy.ExtractURL(ev.Text),
		})
		reposted = id
		return id, err
	}

	dec, err := d.engine.EvaluateAndAdmit(ctx, ev.UserID, ev.Text, at, repost)
	if err != nil {
		d.seen.Delete(ev.UpdateID)
		if reposted != "" {
			// The repost was never tracked; a re-delivery would post it twice.
			d.retract(ctx, logger, ev.ChatID, reposted)
		}
		if errors.Is(err, types.ErrMalformedEvent) {
			return d.drop(logger, err)
		}
		logger.WithError(err).Error("link evaluation failed")
		return Ignored, fmt.Errorf("evaluate link: %w", err)
	}

	if err := d.messenger.Delete(ctx, ev.ChatID, ev.MessageID); err != nil {
		logger.WithError(err).Warn("failed to delete original message")
	}

	vars := noticeVars{
		limit:  cfg.DailyLimit,
		count:  dec.Count,
		reset:  policy.NextReset(at),
		window: cfg.Window(),
		user:   name,
	}
	status := Admitted
	switch dec.Outcome {
	case types.RejectedQuota:
		status = RejectedQuota
		d.notify(ctx, logger, ev.UserID, vars.render(cfg.Notices.Quota))
	case types.RejectedReciprocity:
		status = RejectedReciprocity
		d.notify(ctx, logger, ev.UserID, vars.render(cfg.Notices.Reciprocity))
	}

	d.audit(ctx, logger, types.AuditEvent{
		Type:    "link",
		Scope:   cfg.Scope,
		UserID:  ev.UserID,
		ChatID:  ev.ChatID,
		Outcome: dec.Outcome.String(),
		PostID:  dec.PostID,
		Count:   dec.Count,
		At:      at.Unix(),
	}, ev.Text)
	return status, nil
}

// HandleReaction records that the reacting user acknowledged the post.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev types.ReactionEvent) (Status, error) {
	return d.interaction(ctx, ev.UpdateID, ev.MessageID, ev.UserID, "reaction")
}

// HandleReply records that the replying user acknowledged the post replied to.
func (d *Dispatcher) HandleReply(ctx context.Context, ev types.ReplyEvent) (Status, error) {
	return d.interaction(ctx, ev.UpdateID, ev.ReplyToID, ev.UserID, "reply")
}

func (d *Dispatcher) interaction(ctx context.Context, updateID, postID, userID, kind string) (Status, error) {
	logger := log.WithFields(log.Fields{
		"updateID": updateID,
		"postID":   postID,
		"userID":   userID,
		"kind":     kind,
	})
	if postID == "" || userID == "" {
		return d.drop(logger, types.Err(types.ErrMalformedEvent, nil, "%s without user or message id", kind))
	}
	if !d.claim(updateID) {
		return Duplicate, nil
	}
	if err := d.engine.Ledger().RecordInteraction(ctx, postID, userID); err != nil {
		d.seen.Delete(updateID)
		logger.WithError(err).Error("failed to record interaction")
		return Ignored, fmt.Errorf("record %s: %w", kind, err)
	}
	logger.Debug("interaction recorded")
	return Recorded, nil
}

// claim marks an update id as handled. Events without an id are never deduplicated.
func (d *Dispatcher) claim(updateID string) bool {
	if updateID == "" {
		return true
	}
	return d.seen.SetIfAbsent(updateID, struct{}{}, DedupTTL)
}

func (d *Dispatcher) drop(logger *log.Entry, err error) (Status, error) {
	logger.WithError(err).Warn("dropping malformed event")
	return Ignored, err
}

func (d *Dispatcher) retract(ctx context.Context, logger *log.Entry, chatID, messageID string) {
	if err := d.messenger.Delete(ctx, chatID, messageID); err != nil {
		logger.WithError(err).WithField("repostID", messageID).Error("failed to retract untracked repost")
	}
}

// notify failures are logged only: the decision already stands.
func (d *Dispatcher) notify(ctx context.Context, logger *log.Entry, userID, text string) {
	if err := d.messenger.Notify(ctx, userID, text); err != nil {
		logger.WithError(err).Warn("failed to send notice")
	}
}

func (d *Dispatcher) audit(ctx context.Context, logger *log.Entry, ev types.AuditEvent, original string) {
	if d.auditor == nil {
		return
	}
	if err := d.auditor.Publish(ctx, ev, original); err != nil {
		logger.WithError(err).Warn("failed to publish audit event")
	}
}
