package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"leave-portal/internal/cache"
	"leave-portal/internal/config"
	"leave-portal/internal/messaging/kafka/consumer"
	"leave-portal/internal/shared/connection"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RunConsumer applies cache invalidation events published by the API until
// SIGINT or SIGTERM.
func RunConsumer(cfg config.Config) (err error) {
	logger := zap.L().Named("app.consumer")

	if !cfg.KafkaEnabled() {
		return errors.New("KAFKA_BROKER is required")
	}

	rdb, pingErr := connection.ConnectRedisWithRetry(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, 5)
	if pingErr != nil {
		logger.Warn("redis not ready, deletes will fail until it recovers", zap.Error(pingErr))
	}
	defer func() { err = multierr.Append(err, rdb.Close()) }()

	cacheClient := cache.NewClient(cache.NewBreakerStore(cache.NewRedisStore(rdb), cache.BreakerOptions{Name: "redis"}))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          cfg.Kafka.InvalidationTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.LastOffset,
	})
	defer func() { err = multierr.Append(err, reader.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.ConsumeCacheInvalidation(ctx, reader, cacheClient, logger)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()
	<-done

	return nil
}
