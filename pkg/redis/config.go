package redis

import (
	"cmp"
	"time"

	"github.com/Alijeyrad/simorq_queue/config"
)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	DB       int
	Username string
	Password string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromCentralConfig converts central config.RedisConfig to package Config,
// falling back to defaults for unset values.
func FromCentralConfig(c config.RedisConfig) Config {
	def := DefaultConfig()
	return Config{
		Addr:         c.Addr,
		DB:           c.DB,
		Username:     c.Username,
		Password:     c.Password,
		PoolSize:     cmp.Or(max(c.PoolSize, 0), def.PoolSize),
		MinIdleConns: cmp.Or(max(c.MinIdleConns, 0), def.MinIdleConns),
		DialTimeout:  cmp.Or(seconds(c.DialTimeoutSeconds), def.DialTimeout),
		ReadTimeout:  cmp.Or(seconds(c.ReadTimeoutSeconds), def.ReadTimeout),
		WriteTimeout: cmp.Or(seconds(c.WriteTimeoutSeconds), def.WriteTimeout),
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
