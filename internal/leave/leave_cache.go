package leave

import (
	"context"
	"time"

	"leave-portal/internal/cache"
)

const KeyAllLeaves = "leaves:all"

func KeyLeavesFor(userID string) string {
	return "leaves:user:" + userID
}

func KeyBalanceFor(userID string) string {
	return "balance:user:" + userID
}

const (
	DefaultLeavesTTL  = 20 * time.Second
	DefaultBalanceTTL = 30 * time.Second
)

// CacheOptions wires the read-through cache into the service. A nil Client
// disables caching and a nil Invalidator makes invalidation a no-op.
type CacheOptions struct {
	Client      *cache.Client
	Invalidator cache.Invalidator
	LeavesTTL   time.Duration
	BalanceTTL  time.Duration
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.LeavesTTL <= 0 {
		o.LeavesTTL = DefaultLeavesTTL
	}
	if o.BalanceTTL <= 0 {
		o.BalanceTTL = DefaultBalanceTTL
	}
	if o.Invalidator == nil {
		o.Invalidator = cache.InvalidatorFunc(func(ctx context.Context, keys ...string) {})
	}
	return o
}
