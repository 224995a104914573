package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Alijeyrad/simorq_queue/config"
)

// InitializeDatabase creates the queue database if it doesn't exist.
// It connects to the default 'postgres' database to do so.
func InitializeDatabase(ctx context.Context, c config.DatabaseConfig) error {
	if c.DBName == "" {
		return fmt.Errorf("no database name provided")
	}
	if c.DBName == "postgres" {
		return nil
	}

	admin := FromCentralConfig(c)
	admin.DBName = "postgres"

	conn, err := openSQLDB(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close()

	if err := createDatabaseIfNotExists(ctx, conn, c.DBName); err != nil {
		return fmt.Errorf("failed to create database %q: %w", c.DBName, err)
	}
	return nil
}

func createDatabaseIfNotExists(ctx context.Context, conn *sql.DB, dbName string) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := conn.QueryRowContext(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}
