// Package ledger records which link posts are live and who has acknowledged each of them.
// It holds no policy; the store's TTLs do all of the forgetting.
package ledger

import (
	"context"
	"kelink/internal/ports"
	"kelink/internal/types"
	"time"
)

type Ledger struct {
	kv     ports.KV
	keys   Keys
	window time.Duration
}

func New(kv ports.KV, scope string, window time.Duration) *Ledger {
	return &Ledger{kv: kv, keys: Keys{Scope: scope}, window: window}
}

// Window is the TTL of every per-post key and of the window index.
func (l *Ledger) Window() time.Duration {
	return l.window
}

func (l *Ledger) Keys() Keys {
	return l.keys
}

// RecordPost stores the poster of postID and adds it to the window index at now.
// Re-recording the same post at the same time rewrites identical data.
func (l *Ledger) RecordPost(ctx context.Context, postID, posterID string, now time.Time) error {
	if err := l.kv.SetTTL(ctx, l.keys.Poster(postID), posterID, l.window); err != nil {
		return wrap(err, "record post %s", postID)
	}
	if err := l.kv.ZAdd(ctx, l.keys.Index(), postID, now.UnixMilli()); err != nil {
		return wrap(err, "record post %s", postID)
	}
	if err := l.kv.Expire(ctx, l.keys.Index(), l.window); err != nil {
		return wrap(err, "record post %s", postID)
	}
	return nil
}

// RecordInteraction marks postID as acknowledged by userID. Unknown or expired posts are accepted
// silently: the set simply expires again after the window.
func (l *Ledger) RecordInteraction(ctx context.Context, postID, userID string) error {
	key := l.keys.Interacted(postID)
	if err := l.kv.SAdd(ctx, key, userID); err != nil {
		return wrap(err, "record interaction %s", postID)
	}
	if err := l.kv.Expire(ctx, key, l.window); err != nil {
		return wrap(err, "record interaction %s", postID)
	}
	return nil
}

// PostsInWindow returns the posts recorded in (now-window, now], oldest first.
func (l *Ledger) PostsInWindow(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	ids, err := l.kv.ZRangeAfter(ctx, l.keys.Index(), now.Add(-window).UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, wrap(err, "posts in window")
	}
	return ids, nil
}

// PosterOf returns the poster of postID; found is false once the post has expired.
func (l *Ledger) PosterOf(ctx context.Context, postID string) (userID string, found bool, err error) {
	userID, found, err = l.kv.Get(ctx, l.keys.Poster(postID))
	if err != nil {
		return "", false, wrap(err, "poster of %s", postID)
	}
	return userID, found, nil
}

func (l *Ledger) HasAcknowledged(ctx context.Context, postID, userID string) (bool, error) {
	ok, err := l.kv.SIsMember(ctx, l.keys.Interacted(postID), userID)
	if err != nil {
		return false, wrap(err, "acknowledged %s", postID)
	}
	return ok, nil
}

// Acknowledgers lists everyone who acknowledged postID, the poster included.
func (l *Ledger) Acknowledgers(ctx context.Context, postID string) ([]string, error) {
	members, err := l.kv.SMembers(ctx, l.keys.Interacted(postID))
	if err != nil {
		return nil, wrap(err, "acknowledgers of %s", postID)
	}
	return members, nil
}

// wrap keeps every ledger failure classified as ErrStoreUnavailable whatever the backend returned.
func wrap(err error, msg string, args ...any) error {
	return types.Err(types.ErrStoreUnavailable, err, "ledger: "+msg, args...)
}
