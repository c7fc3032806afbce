package producer

import (
	"context"
	"sync"
	"time"

	"leave-portal/internal/cache"
	"leave-portal/internal/events"
	"leave-portal/internal/shared/contextutil"

	"go.uber.org/zap"
)

type PublisherOptions struct {
	QueueSize int
	Timeout   time.Duration
}

// InvalidationPublisher is a cache.Invalidator that fans invalidations out to
// every API instance through Kafka. When an event cannot be queued or
// published the keys are handed to the fallback invalidator instead.
type InvalidationPublisher struct {
	writer   MessageWriter
	fallback cache.Invalidator
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan events.CacheInvalidationEvent
	wg     sync.WaitGroup
}

func NewInvalidationPublisher(
	writer MessageWriter,
	fallback cache.Invalidator,
	opts PublisherOptions,
	logger ...*zap.Logger,
) *InvalidationPublisher {
	l := zap.L().Named("kafka.producer.invalidation")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.producer.invalidation")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	p := &InvalidationPublisher{
		writer:   writer,
		fallback: fallback,
		timeout:  opts.Timeout,
		logger:   l,
		queue:    make(chan events.CacheInvalidationEvent, opts.QueueSize),
	}
	p.wg.Add(1)
	go p.work()

	l.Info("invalidation publisher started", zap.Int("queue_size", opts.QueueSize))
	return p
}

func (p *InvalidationPublisher) Invalidate(ctx context.Context, keys ...string) {
	valid := cache.CompactKeys(keys)
	if len(valid) == 0 {
		return
	}
	event := events.CacheInvalidationEvent{
		EventType:  events.CacheInvalidationEventType,
		Keys:       valid,
		RequestID:  contextutil.GetRequestID(ctx),
		OccurredAt: time.Now().UTC(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.fallbackInvalidate(event)
		return
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("invalidation queue full, invalidating locally", zap.Strings("keys", valid))
		p.fallbackInvalidate(event)
	}
}

// Close drains the queue and waits for in-flight publishes.
func (p *InvalidationPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("invalidation publisher stopped")
	return nil
}

func (p *InvalidationPublisher) work() {
	defer p.wg.Done()
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := publishEvent(ctx, p.writer, event)
		cancel()

		if err != nil {
			p.logger.Error("publish invalidation event failed",
				zap.String("request_id", event.RequestID),
				zap.Strings("keys", event.Keys),
				zap.Error(err),
			)
			p.fallbackInvalidate(event)
			continue
		}

		p.logger.Debug("invalidation event published",
			zap.String("request_id", event.RequestID),
			zap.Strings("keys", event.Keys),
		)
	}
}

func (p *InvalidationPublisher) fallbackInvalidate(event events.CacheInvalidationEvent) {
	if p.fallback == nil {
		return
	}
	ctx := contextutil.WithRequestID(context.Background(), event.RequestID)
	p.fallback.Invalidate(ctx, event.Keys...)
}
