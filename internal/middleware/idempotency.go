package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leave-portal/internal/shared/contextutil"
	"leave-portal/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// idempotencyRedisTimeout bounds each Redis call so an unreachable server
// costs a request this much at most instead of a full dial timeout.
const idempotencyRedisTimeout = 250 * time.Millisecond

func redisCall(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, idempotencyRedisTimeout)
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a POST that carried the same
// Idempotency-Key for the same user and route. A retry that arrives while the
// first request is still running gets 409. Without Redis, or when Redis fails,
// requests pass through untouched.
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *gin.Context) {
		idempKey := c.GetHeader(HeaderIdempotencyKey)
		if rdb == nil || idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		l := contextutil.GetLogger(ctx, zap.L())
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), c.GetString(ContextUserID), idempKey)
		lockKey := cacheKey + ":lock"

		getCtx, cancel := redisCall(ctx)
		val, err := rdb.Get(getCtx, cacheKey).Result()
		cancel()
		if err == nil {
			var stored storedResponse
			if json.Unmarshal([]byte(val), &stored) == nil && stored.Status != 0 {
				c.Header("Idempotent-Replay", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		} else if err != redis.Nil {
			l.Warn("idempotency lookup failed", zap.String("key", cacheKey), zap.Error(err))
			c.Next()
			return
		}

		lockCtx, cancel := redisCall(ctx)
		acquired, err := rdb.SetNX(lockCtx, lockKey, "locked", 30*time.Second).Result()
		cancel()
		if err != nil {
			l.Warn("idempotency lock failed", zap.String("key", lockKey), zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Error(c, http.StatusConflict, "PROCESSING", "A request with this idempotency key is still being processed", nil)
			c.Abort()
			return
		}
		// the client may be gone by the time the handler returns
		after := context.WithoutCancel(ctx)
		defer func() {
			delCtx, cancel := redisCall(after)
			defer cancel()
			rdb.Del(delCtx, lockKey)
		}()

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 {
			return
		}
		payload, err := json.Marshal(storedResponse{Status: status, Body: rec.buf.Bytes()})
		if err != nil {
			return
		}
		setCtx, cancel := redisCall(after)
		defer cancel()
		if err := rdb.Set(setCtx, cacheKey, string(payload), ttl).Err(); err != nil {
			l.Warn("idempotency store failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
}
