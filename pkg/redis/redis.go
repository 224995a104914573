package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/simorq_queue/config"
)

// ErrNoAddr is returned when the config names no server.
var ErrNoAddr = errors.New("redis addr is empty")

// Enabled reports whether the config names a Redis server at all.
func Enabled(cfg config.RedisConfig) bool {
	return cfg.Addr != ""
}

// NewRedisFromCentral creates a new Redis client from central config
func NewRedisFromCentral(cfg config.RedisConfig) (*goredis.Client, error) {
	return NewRedis(FromCentralConfig(cfg))
}

// NewRedis builds a client and waits for the first PING, retrying for up to
// a few dial timeouts before giving up.
func NewRedis(cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	dial := cmp.Or(cfg.DialTimeout, DefaultConfig().DialTimeout)
	ctx := context.Background()
	_, err := backoff.Retry(ctx, func() (string, error) {
		pctx, cancel := context.WithTimeout(ctx, dial)
		defer cancel()
		pong, err := rdb.Ping(pctx).Result()
		if err != nil {
			slog.Warn("redis: ping failed", "addr", cfg.Addr, "error", err)
		}
		return pong, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(3*dial))
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}
