package cache

import (
	"context"
	"sync"
	"time"

	"leave-portal/internal/shared/contextutil"

	"go.uber.org/zap"
)

// Invalidator schedules deletion of cache keys. Implementations return before
// the deletes run and never report failures to the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

type InvalidatorFunc func(ctx context.Context, keys ...string)

func (f InvalidatorFunc) Invalidate(ctx context.Context, keys ...string) {
	f(ctx, keys...)
}

// CompactKeys drops empty and repeated keys, keeping the first occurrence.
func CompactKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

type InvalidatorOptions struct {
	Workers   int
	QueueSize int
	// Per-key delete timeout. Deletes run on a context detached from the
	// request, which has usually finished by then.
	Timeout time.Duration
}

type invalidationTask struct {
	requestID string
	keys      []string
}

// AsyncInvalidator is an in-process task queue drained by worker goroutines.
type AsyncInvalidator struct {
	client  *Client
	tasks   chan invalidationTask
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncInvalidator(client *Client, opts InvalidatorOptions, logger ...*zap.Logger) *AsyncInvalidator {
	l := zap.L().Named("cache.invalidator")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cache.invalidator")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}

	inv := &AsyncInvalidator{
		client:  client,
		tasks:   make(chan invalidationTask, opts.QueueSize),
		timeout: opts.Timeout,
		logger:  l,
	}
	for i := 0; i < opts.Workers; i++ {
		inv.wg.Add(1)
		go inv.work()
	}
	return inv
}

func (i *AsyncInvalidator) Invalidate(ctx context.Context, keys ...string) {
	valid := CompactKeys(keys)
	if len(valid) == 0 {
		return
	}
	task := invalidationTask{requestID: contextutil.GetRequestID(ctx), keys: valid}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		go i.run(task)
		return
	}

	select {
	case i.tasks <- task:
		i.logger.Debug("cache invalidation scheduled",
			zap.String("request_id", task.requestID),
			zap.Strings("keys", valid),
		)
	default:
		// queue full: run detached rather than block the request
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.run(task)
		}()
	}
}

// Close stops accepting queued work and waits until every scheduled delete
// has finished.
func (i *AsyncInvalidator) Close() error {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		close(i.tasks)
	}
	i.mu.Unlock()

	i.wg.Wait()
	return nil
}

func (i *AsyncInvalidator) work() {
	defer i.wg.Done()
	for task := range i.tasks {
		i.run(task)
	}
}

func (i *AsyncInvalidator) run(task invalidationTask) {
	for _, key := range task.keys {
		ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
		err := i.client.Delete(ctx, key)
		cancel()
		if err != nil {
			i.logger.Warn("cache invalidation failed",
				zap.String("request_id", task.requestID),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}
