// Package cache holds the best-effort cache used in front of the database:
// a raw key-value Store, a JSON Client that never fails its caller, the
// read-through helper and the fire-and-forget invalidation queue.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned by a Store when the key does not exist.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable is returned when no backend is configured or the
	// circuit around it is open.
	ErrUnavailable = errors.New("cache: unavailable")
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore accepts a nil client; every call then reports ErrUnavailable.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.rdb == nil {
		return "", ErrUnavailable
	}
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s == nil || s.rdb == nil {
		return ErrUnavailable
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if s == nil || s.rdb == nil {
		return ErrUnavailable
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
