package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/config"
	"github.com/sraza0098/wisp-backend/internal/store"
	"github.com/sraza0098/wisp-backend/internal/store/gormstore"
	"github.com/sraza0098/wisp-backend/internal/store/postgres"
)

const (
	connectMaxRetries   = 8
	connectInitialDelay = 500 * time.Millisecond
	connectMaxDelay     = 10 * time.Second
)

func retryPolicy(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(connectInitialDelay),
				backoff.WithMaxInterval(connectMaxDelay),
			),
			connectMaxRetries,
		),
		ctx,
	)
}

// openStore connects the configured database, retrying while it comes up.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (store.Store, error) {
	if cfg.Driver == "sqlite" {
		s, err := gormstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return s, nil
	}

	s, err := postgres.Open(cfg.DSN())
	if err != nil {
		return nil, err
	}
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.Ping(pctx)
	}
	err = backoff.RetryNotify(ping, retryPolicy(ctx), func(err error, d time.Duration) {
		log.Warn("database not ready", zap.Error(err), zap.Duration("retry_in", d))
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := postgres.Migrate(ctx, s.DB(), log); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("using postgres store", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return s, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ping := func() error { return rdb.Ping(ctx).Err() }
	err := backoff.RetryNotify(ping, retryPolicy(ctx), func(err error, d time.Duration) {
		log.Warn("redis not ready", zap.Error(err), zap.Duration("retry_in", d))
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return rdb, nil
}
