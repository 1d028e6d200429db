package policy

import (
	"context"
	"kelink/internal/types"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// EnsureGrace starts the grace period at now unless a deadline is already stored.
// It returns the deadline in effect, at the second precision it is stored with.
// Always-strict engines return the zero time.
func (e *Engine) EnsureGrace(ctx context.Context, now time.Time) (time.Time, error) {
	if !e.cfg.Grace {
		return time.Time{}, nil
	}
	deadline := time.Unix(now.Add(e.ledger.Window()).Unix(), 0).UTC()
	stored, err := e.kv.SetNX(ctx, e.keys.Grace(), strconv.FormatInt(deadline.Unix(), 10))
	if err != nil {
		return time.Time{}, types.Err(types.ErrStoreUnavailable, err, "ensure grace deadline")
	}
	if stored {
		log.WithField("enforce_after", deadline).Info("grace period started")
		return deadline, nil
	}
	current, _, err := e.GraceDeadline(ctx)
	return current, err
}

// ResetGrace discards the stored deadline and starts a new grace period at now.
func (e *Engine) ResetGrace(ctx context.Context, now time.Time) (time.Time, error) {
	if !e.cfg.Grace {
		return time.Time{}, nil
	}
	if err := e.kv.Del(ctx, e.keys.Grace()); err != nil {
		return time.Time{}, types.Err(types.ErrStoreUnavailable, err, "reset grace deadline")
	}
	return e.EnsureGrace(ctx, now)
}

// GraceDeadline reads the stored deadline without creating one.
func (e *Engine) GraceDeadline(ctx context.Context) (time.Time, bool, error) {
	v, found, err := e.kv.Get(ctx, e.keys.Grace())
	if err != nil {
		return time.Time{}, false, types.Err(types.ErrStoreUnavailable, err, "read grace deadline")
	}
	if !found {
		return time.Time{}, false, nil
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, types.Err(types.ErrStoreUnavailable, err, "invalid grace deadline %q", v)
	}
	return time.Unix(ts, 0).UTC(), true, nil
}

// inGrace reports whether the reciprocity check is bypassed at now. A missing deadline is
// created lazily, so the first evaluation after a wipe opens a fresh grace period.
func (e *Engine) inGrace(ctx context.Context, now time.Time) (bool, error) {
	if !e.cfg.Grace {
		return false, nil
	}
	deadline, found, err := e.GraceDeadline(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		if deadline, err = e.EnsureGrace(ctx, now); err != nil {
			return false, err
		}
	}
	return now.Before(deadline), nil
}
