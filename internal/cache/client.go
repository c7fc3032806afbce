package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client reads and writes JSON values. Backend failures are logged and
// reported to the caller as a miss (reads) or ignored (writes).
type Client struct {
	store  Store
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewClient(store Store, logger ...*zap.Logger) *Client {
	l := zap.L().Named("cache.client")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cache.client")
	}
	return &Client{store: store, sf: &singleflight.Group{}, logger: l}
}

// GetJSON decodes the value stored under key into dst and reports whether it
// did. Absent keys, stored nulls, backend errors and undecodable payloads all
// return false.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) bool {
	if c == nil || c.store == nil {
		return false
	}

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.logStoreError("cache get failed", key, err)
		return false
	}
	if raw == "" || raw == "null" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores v under key with the given expiry. A ttl of zero keeps the
// entry until it is deleted.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, key, string(payload), ttl); err != nil {
		c.logStoreError("cache set failed", key, err)
	}
}

// Delete removes a single key. Unlike reads and writes the error is returned
// so the invalidation worker can log which key stayed stale.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return ErrUnavailable
	}
	return c.store.Del(ctx, key)
}

func (c *Client) group() *singleflight.Group {
	if c.sf == nil {
		c.sf = &singleflight.Group{}
	}
	return c.sf
}

func (c *Client) logStoreError(msg, key string, err error) {
	switch {
	case errors.Is(err, ErrMiss):
	case errors.Is(err, ErrUnavailable):
		c.logger.Debug(msg, zap.String("key", key), zap.Error(err))
	default:
		c.logger.Warn(msg, zap.String("key", key), zap.Error(err))
	}
}
