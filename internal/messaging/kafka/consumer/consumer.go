package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"leave-portal/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafkago.Reader used here.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// KeyDeleter removes a single cache key; *cache.Client satisfies it.
type KeyDeleter interface {
	Delete(ctx context.Context, key string) error
}

const (
	deleteTimeout = 2 * time.Second
	fetchBackoff  = 250 * time.Millisecond
)

// ConsumeCacheInvalidation deletes the keys named by every invalidation event
// until ctx is cancelled or the reader is closed. Failed deletes are logged and the message is still
// committed; the entry expires on its own TTL.
func ConsumeCacheInvalidation(
	ctx context.Context,
	reader MessageReader,
	deleter KeyDeleter,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.cache_invalidation")
	log.Info("cache invalidation consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("cache invalidation consumer stopped")
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				log.Info("cache invalidation reader closed")
				return
			}
			log.Error("fetch cache invalidation message failed", zap.Error(err))
			select {
			case <-ctx.Done():
				log.Info("cache invalidation consumer stopped")
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		var event events.CacheInvalidationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode cache invalidation event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		for _, key := range event.Keys {
			delCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
			err := deleter.Delete(delCtx, key)
			cancel()
			if err != nil {
				log.Warn("cache invalidation delete failed",
					zap.String("request_id", event.RequestID),
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit cache invalidation message failed", zap.Error(err))
			continue
		}

		log.Debug("cache keys invalidated",
			zap.String("request_id", event.RequestID),
			zap.Strings("keys", event.Keys),
		)
	}
}
