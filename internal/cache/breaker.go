package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerOptions struct {
	Name string
	// Consecutive backend failures before the circuit opens.
	Threshold uint32
	// How long the circuit stays open before a probe request is let through.
	OpenTimeout time.Duration
}

// BreakerStore stops talking to a failing backend for a while so that an
// unreachable cache costs one fast error per call instead of a network timeout.
// Misses are not failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreakerStore(next Store, opts BreakerOptions, logger ...*zap.Logger) *BreakerStore {
	l := zap.L().Named("cache.breaker")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cache.breaker")
	}
	if opts.Name == "" {
		opts.Name = "cache"
	}
	if opts.Threshold == 0 {
		opts.Threshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("cache circuit state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerStore{next: next, cb: cb}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.cb.Execute(func() (string, error) {
		return s.next.Get(ctx, key)
	})
	return val, mapBreakerError(err)
}

func (s *BreakerStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (string, error) {
		return "", s.next.Set(ctx, key, value, ttl)
	})
	return mapBreakerError(err)
}

func (s *BreakerStore) Del(ctx context.Context, keys ...string) error {
	_, err := s.cb.Execute(func() (string, error) {
		return "", s.next.Del(ctx, keys...)
	})
	return mapBreakerError(err)
}

func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
