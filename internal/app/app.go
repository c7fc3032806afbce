package app

import (
	"context"
	"time"

	"leave-portal/internal/cache"
	"leave-portal/internal/config"
	"leave-portal/internal/leave"
	"leave-portal/internal/messaging/kafka/producer"
	"leave-portal/internal/shared/connection"
	"leave-portal/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BuildOptions struct {
	Migrate bool
	Seed    bool
}

// App owns every long-lived connection opened by BuildApp.
type App struct {
	DB      *gorm.DB
	Redis   *redis.Client
	closers []func() error
	logger  *zap.Logger
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.logger.Info("app resources released", zap.Error(err))
	return err
}

func BuildApp(router *gin.Engine, cfg config.Config, opts BuildOptions) (*App, error) {
	logger := zap.L().Named("app")
	a := &App{logger: logger}

	// 1. Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DB.Host,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.Port,
		cfg.DB.SSLMode,
		5,
	)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	a.DB = gormDB
	a.onClose(sqlDB.Close)

	if opts.Migrate {
		if err := gormDB.AutoMigrate(&user.User{}, &leave.Leave{}); err != nil {
			return nil, multierr.Append(err, a.Close())
		}
		logger.Info("database schema migrated")
	}

	rdb, err := connection.ConnectRedisWithRetry(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, 3)
	if err != nil {
		logger.Warn("redis unavailable, serving without cache until it recovers", zap.Error(err))
	}
	a.Redis = rdb
	a.onClose(rdb.Close)

	cacheClient := cache.NewClient(cache.NewBreakerStore(cache.NewRedisStore(rdb), cache.BreakerOptions{Name: "redis"}))

	localInvalidator := cache.NewAsyncInvalidator(cacheClient, cache.InvalidatorOptions{
		Workers:   cfg.Cache.InvalidateWorkers,
		QueueSize: cfg.Cache.InvalidateQueue,
		Timeout:   cfg.Cache.InvalidateTimeout,
	})
	a.onClose(localInvalidator.Close)

	var invalidator cache.Invalidator = localInvalidator
	if cfg.KafkaEnabled() {
		writer, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.Kafka.InvalidationTopic, 3)
		if err != nil {
			logger.Warn("kafka unavailable, invalidating in-process", zap.Error(err))
		} else {
			a.onClose(writer.Close)
			publisher := producer.NewInvalidationPublisher(writer, localInvalidator, producer.PublisherOptions{
				QueueSize: cfg.Cache.InvalidateQueue,
			})
			a.onClose(publisher.Close)
			invalidator = publisher
		}
	}

	// 2. Modules & routes
	userRepo, err := registerModules(router, cfg, gormDB, rdb, leave.CacheOptions{
		Client:      cacheClient,
		Invalidator: invalidator,
		LeavesTTL:   cfg.Cache.LeavesTTL,
		BalanceTTL:  cfg.Cache.BalanceTTL,
	})
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	if opts.Seed {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := user.SeedDefaults(ctx, userRepo, seedAccounts(cfg)); err != nil {
			return nil, multierr.Append(err, a.Close())
		}
	}

	return a, nil
}

func seedAccounts(cfg config.Config) []user.SeedAccount {
	accounts := make([]user.SeedAccount, len(cfg.SeedUsers))
	for i, s := range cfg.SeedUsers {
		accounts[i] = user.SeedAccount{Role: s.Role, Name: s.Name, Email: s.Email, Password: s.Password}
	}
	return accounts
}
