package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Alijeyrad/simorq_queue/config"
)

func TestDSN(t *testing.T) {
	cfg := FromCentralConfig(config.DatabaseConfig{
		Host:     "db",
		User:     "queue",
		Password: "p@ss word",
		DBName:   "simorq_queue",
	})
	assert.Equal(t, "postgres://queue:p%40ss%20word@db:5432/simorq_queue?sslmode=disable", cfg.DSN())
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime())
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)

	cfg = FromCentralConfig(config.DatabaseConfig{
		Host:                  "::1",
		Port:                  6543,
		DBName:                "q",
		SSLMode:               "require",
		ConnectTimeoutSeconds: 3,
	})
	assert.Equal(t, "postgres://[::1]:6543/q?sslmode=require", cfg.DSN())
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(config.DatabaseConfig{}))
	assert.False(t, Enabled(config.DatabaseConfig{Host: "db"}))
	assert.True(t, Enabled(config.DatabaseConfig{Host: "db", DBName: "q"}))
}
