package redis

import (
	"context"
	"errors"
	"kelink/internal/types"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store implements ports.KV on a single Redis database.
type Store struct {
	cli *redis.Client
}

func NewStore(cli *redis.Client) *Store {
	return &Store{cli: cli}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	out := s.cli.Get(ctx, key)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return "", false, nil
		}
		return "", false, storeErr(out.Err(), "get", key)
	}
	return out.Val(), true, nil
}

func (s *Store) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.cli.Set(ctx, key, value, ttl).Err(); err != nil {
		return storeErr(err, "set", key)
	}
	return nil
}

func (s *Store) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.cli.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, storeErr(err, "setnx", key)
	}
	return ok, nil
}

// IncrTTL runs INCR and EXPIRE in one MULTI so a counter never lives without its expiry.
func (s *Store) IncrTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, storeErr(err, "incr", key)
	}
	return incr.Val(), nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.cli.Expire(ctx, key, ttl).Err(); err != nil {
		return storeErr(err, "expire", key)
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key, member string) error {
	if err := s.cli.SAdd(ctx, key, member).Err(); err != nil {
		return storeErr(err, "sadd", key)
	}
	return nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.cli.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, storeErr(err, "sismember", key)
	}
	return ok, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.cli.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr(err, "smembers", key)
	}
	return members, nil
}

func (s *Store) ZAdd(ctx context.Context, key, member string, score int64) error {
	if err := s.cli.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: member}).Err(); err != nil {
		return storeErr(err, "zadd", key)
	}
	return nil
}

// ZRangeAfter uses an exclusive lower bound, "(after".
func (s *Store) ZRangeAfter(ctx context.Context, key string, after, until int64) ([]string, error) {
	members, err := s.cli.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(after, 10),
		Max: strconv.FormatInt(until, 10),
	}).Result()
	if err != nil {
		return nil, storeErr(err, "zrangebyscore", key)
	}
	return members, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.cli.Del(ctx, keys...).Err(); err != nil {
		return storeErr(err, "del", keys[0])
	}
	return nil
}

func storeErr(err error, op, key string) error {
	return types.Err(types.ErrStoreUnavailable, err, "redis %s %s", op, key)
}
