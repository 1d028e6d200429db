// Package policy decides whether a link post is admitted: a daily quota per user, then the
// reciprocity rule over the trailing window of the ledger. It keeps no state between calls.
package policy

import (
	"context"
	"fmt"
	"kelink/internal/ledger"
	"kelink/internal/ports"
	"kelink/internal/types"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// RepostFunc publishes an admitted link with its projected daily count and returns the id the
// transport assigned to the new message. That id becomes the post id in the ledger.
type RepostFunc func(ctx context.Context, count int) (postID string, err error)

type Engine struct {
	kv     ports.KV
	ledger *ledger.Ledger
	keys   ledger.Keys
	cfg    types.PolicyConfig
}

// New builds the engine and its ledger from one config, so the ledger TTLs and the window query
// always use the same window.
func New(kv ports.KV, cfg types.PolicyConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := ledger.New(kv, cfg.Scope, cfg.Window())
	return &Engine{kv: kv, ledger: l, keys: l.Keys(), cfg: cfg}, nil
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Engine) Config() types.PolicyConfig {
	return e.cfg
}

// Evaluate runs the quota check and then the reciprocity check for userID at now.
// It mutates nothing besides the lazy grace deadline. For Admitted, Count is the projected count
// after admission. A store failure returns an error and no decision.
func (e *Engine) Evaluate(ctx context.Context, userID string, now time.Time) (types.Decision, error) {
	count, err := e.DailyCount(ctx, userID, now)
	if err != nil {
		return types.Decision{}, err
	}
	if count >= e.cfg.DailyLimit {
		return types.Decision{Outcome: types.RejectedQuota, Count: count}, nil
	}

	grace, err := e.inGrace(ctx, now)
	if err != nil {
		return types.Decision{}, err
	}
	if !grace {
		pending, err := e.pending(ctx, userID, now, true)
		if err != nil {
			return types.Decision{}, err
		}
		if len(pending) > 0 {
			return types.Decision{Outcome: types.RejectedReciprocity, Count: count, Pending: pending[0]}, nil
		}
	}
	return types.Decision{Outcome: types.Admitted, Count: count + 1}, nil
}

// EvaluateAndAdmit evaluates a link post and, when admitted, reposts it and records it.
// The daily counter is bumped last so a failure in repost or in the ledger writes leaves the
// quota untouched and the evaluation can be retried.
func (e *Engine) EvaluateAndAdmit(ctx context.Context, userID, postText string, now time.Time, repost RepostFunc) (types.Decision, error) {
	if userID == "" {
		return types.Decision{}, types.Err(types.ErrMalformedEvent, nil, "missing user id")
	}
	if !IsLink(postText) {
		return types.Decision{}, types.Err(types.ErrMalformedEvent, nil, "no link in post from %s", userID)
	}

	d, err := e.Evaluate(ctx, userID, now)
	if err != nil {
		return types.Decision{}, err
	}
	logger := log.WithFields(log.Fields{
		"scope":   e.cfg.Scope,
		"userID":  userID,
		"outcome": d.Outcome.String(),
		"count":   d.Count,
	})
	if d.Outcome != types.Admitted {
		logger.WithField("pending", d.Pending).Debug("link rejected")
		return d, nil
	}

	postID, err := repost(ctx, d.Count)
	if err != nil {
		return types.Decision{}, fmt.Errorf("repost: %w", err)
	}
	if err := e.ledger.RecordPost(ctx, postID, userID, now); err != nil {
		return types.Decision{}, err
	}
	// The poster counts as having acknowledged their own post.
	if err := e.ledger.RecordInteraction(ctx, postID, userID); err != nil {
		return types.Decision{}, err
	}
	count, err := e.bumpDailyCount(ctx, userID, now)
	if err != nil {
		return types.Decision{}, err
	}
	if count != d.Count {
		// Two admissions for the same user interleaved between check and bump. Accepted, not undone.
		logger.WithFields(log.Fields{
			"projected": d.Count,
			"actual":    count,
			"postID":    postID,
		}).Warn("quota race: concurrent admissions for the same user")
	}
	logger.WithField("postID", postID).Info("link admitted")
	return types.Decision{Outcome: types.Admitted, PostID: postID, Count: count}, nil
}

// Outstanding lists the posts userID still has to acknowledge, oldest first, ignoring any grace
// period.
func (e *Engine) Outstanding(ctx context.Context, userID string, now time.Time) ([]string, error) {
	return e.pending(ctx, userID, now, false)
}

// Status is the read-only view of userID at now. It never creates the grace deadline.
func (e *Engine) Status(ctx context.Context, userID string, now time.Time) (types.UserStatus, error) {
	count, err := e.DailyCount(ctx, userID, now)
	if err != nil {
		return types.UserStatus{}, err
	}
	outstanding, err := e.Outstanding(ctx, userID, now)
	if err != nil {
		return types.UserStatus{}, err
	}
	if outstanding == nil {
		outstanding = []string{}
	}
	st := types.UserStatus{
		UserID:      userID,
		DailyCount:  count,
		DailyLimit:  e.cfg.DailyLimit,
		ResetAt:     NextReset(now),
		Outstanding: outstanding,
	}
	if e.cfg.Grace {
		deadline, found, err := e.GraceDeadline(ctx)
		if err != nil {
			return types.UserStatus{}, err
		}
		if found {
			st.GraceUntil = &deadline
			st.GraceActive = now.Before(deadline)
		} else {
			st.GraceActive = true
		}
	}
	return st, nil
}

// PostStatus reports the poster and acknowledgers of a live post, sorted by user id.
// Expired or unknown posts return ErrNotFound.
func (e *Engine) PostStatus(ctx context.Context, postID string) (types.PostStatus, error) {
	poster, found, err := e.ledger.PosterOf(ctx, postID)
	if err != nil {
		return types.PostStatus{}, err
	}
	if !found {
		return types.PostStatus{}, types.Err(types.ErrNotFound, nil, "post %s", postID)
	}
	acks, err := e.ledger.Acknowledgers(ctx, postID)
	if err != nil {
		return types.PostStatus{}, err
	}
	sort.Strings(acks)
	if acks == nil {
		acks = []string{}
	}
	return types.PostStatus{PostID: postID, Poster: poster, Acknowledgers: acks}, nil
}

// pending walks the obligation set of userID: posts in the window that are not theirs.
// Posts whose poster record has expired are no longer an obligation.
func (e *Engine) pending(ctx context.Context, userID string, now time.Time, firstOnly bool) ([]string, error) {
	ids, err := e.ledger.PostsInWindow(ctx, now, e.ledger.Window())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, pid := range ids {
		poster, found, err := e.ledger.PosterOf(ctx, pid)
		if err != nil {
			return nil, err
		}
		if !found || poster == userID {
			continue
		}
		ok, err := e.ledger.HasAcknowledged(ctx, pid, userID)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		out = append(out, pid)
		if firstOnly {
			break
		}
	}
	return out, nil
}
