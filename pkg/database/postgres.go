package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq"

	"github.com/Alijeyrad/simorq_queue/config"
)

const pingTimeout = 5 * time.Second

// openSQLDB opens a pool and pings it, retrying with exponential backoff
// until cfg.ConnectTimeout elapses.
func openSQLDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := conn.PingContext(pctx); err != nil {
			slog.Warn("database: ping failed", "host", cfg.Host, "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(max(cfg.ConnectTimeout, pingTimeout)))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// Open connects to the queue database described by the central config.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	return openSQLDB(ctx, FromCentralConfig(c))
}

// Enabled reports whether a database host is configured.
func Enabled(c config.DatabaseConfig) bool {
	return c.Host != "" && c.DBName != ""
}
