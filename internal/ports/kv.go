package ports

import (
	"context"
	"time"
)

// KV is the key-value capability the ledger and the policy engine run on.
// Keys passed in are fully qualified; implementations do not add prefixes.
// Any I/O failure MUST be returned as an error; a missing key is not an error.
type KV interface {
	// Get returns the scalar value and true, or ("", false, nil) if absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetTTL stores a scalar that expires after ttl. ttl<=0 means no expiry.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores a scalar without expiry only if the key is absent. Returns true if stored.
	SetNX(ctx context.Context, key, value string) (bool, error)

	// IncrTTL increments a counter (creating it at 0) and (re)sets its expiry to ttl.
	// Returns the new value.
	IncrTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Expire (re)sets the expiry of an existing key; it is a no-op for absent keys.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SAdd adds member to the set at key.
	SAdd(ctx context.Context, key, member string) error

	// SIsMember reports set membership; an absent set has no members.
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// SMembers lists the set members in no particular order.
	SMembers(ctx context.Context, key string) ([]string, error)

	// ZAdd adds or re-scores member in the sorted set at key.
	ZAdd(ctx context.Context, key, member string, score int64) error

	// ZRangeAfter returns members with after < score <= until, in ascending score order.
	ZRangeAfter(ctx context.Context, key string, after, until int64) ([]string, error)

	// Del removes keys. Absent keys are ignored.
	Del(ctx context.Context, keys ...string) error
}
