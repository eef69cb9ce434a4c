package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/internal/appconfig"
	"github.com/MrEthical07/webAuth/store/gormstore"
	"github.com/MrEthical07/webAuth/store/memory"
	"github.com/MrEthical07/webAuth/store/postgres"
)

// retry runs op with exponential backoff until it succeeds, ctx ends, or
// timeout elapses.
func retry(ctx context.Context, logger *slog.Logger, what string, timeout time.Duration, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	notify := func(err error, next time.Duration) {
		logger.WarnContext(ctx, "dependency not ready", "dependency", what, "retry_in", next, "err", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", what, err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (webAuth.CredentialStore, func() error, error) {
	switch cfg.Store.Driver {
	case "postgres":
		var db *sql.DB
		err := retry(ctx, logger, "postgres", cfg.Startup.DialTimeout, func() error {
			var err error
			db, err = postgres.Open(ctx, cfg.Store.DSN)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return postgres.New(db), db.Close, nil

	case "sqlite":
		s, err := gormstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "memory":
		logger.WarnContext(ctx, "using in-memory credential store; accounts are lost on restart")
		return memory.New(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// openRedis returns nil when no address is configured.
func openRedis(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	err := retry(ctx, logger, "redis", cfg.Startup.DialTimeout, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
