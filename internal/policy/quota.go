package policy

import (
	"context"
	"kelink/internal/types"
	"strconv"
	"time"
)

// NextReset is the next UTC midnight after now; daily counters expire exactly then.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// DailyCount is the number of links admitted for userID on the UTC day of now.
func (e *Engine) DailyCount(ctx context.Context, userID string, now time.Time) (int, error) {
	v, found, err := e.kv.Get(ctx, e.keys.Counter(now, userID))
	if err != nil {
		return 0, types.Err(types.ErrStoreUnavailable, err, "daily count of %s", userID)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, types.Err(types.ErrStoreUnavailable, err, "invalid daily count %q for %s", v, userID)
	}
	return n, nil
}

// bumpDailyCount increments the counter, creating it with an expiry at the next UTC midnight.
func (e *Engine) bumpDailyCount(ctx context.Context, userID string, now time.Time) (int, error) {
	n, err := e.kv.IncrTTL(ctx, e.keys.Counter(now, userID), NextReset(now).Sub(now))
	if err != nil {
		return 0, types.Err(types.ErrStoreUnavailable, err, "bump daily count of %s", userID)
	}
	return int(n), nil
}
