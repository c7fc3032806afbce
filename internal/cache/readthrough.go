package cache

import (
	"context"
	"time"
)

// ComputeTimeout bounds a shared compute call once it is detached from the
// request that started it.
var ComputeTimeout = 15 * time.Second

// GetOrCompute returns the value cached under key or, on any kind of miss,
// the value produced by compute. A non-nil computed value is written back with
// the given ttl; a nil one is returned as-is and never cached. Concurrent
// misses on the same key within this process share a single compute call,
// which keeps running when the caller that started it goes away.
//
// Only compute or the caller's own ctx can fail the call.
func GetOrCompute[T any](
	ctx context.Context,
	c *Client,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) (*T, error),
) (*T, error) {
	if c == nil {
		return compute(ctx)
	}

	var cached T
	if c.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	ch := c.group().DoChan(key, func() (interface{}, error) {
		// shared by every caller waiting on key, so no single caller's
		// cancellation may end it
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ComputeTimeout)
		defer cancel()

		value, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		if value != nil {
			c.SetJSON(flightCtx, key, value, ttl)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		value, _ := res.Val.(*T)
		return value, nil
	}
}
