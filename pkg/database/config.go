package database

import (
	"cmp"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/Alijeyrad/simorq_queue/config"
)

// Config holds database connection and behavior settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// ConnectTimeout bounds the retry loop around the first ping.
	ConnectTimeout time.Duration

	// Connection pooling
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int

	// AutoMigrate applies the queue schema on startup.
	AutoMigrate bool
}

// DSN returns a postgres:// URL. Credentials are escaped so passwords
// with spaces or '@' survive.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(cmp.Or(c.Port, 5432))),
		Path:   "/" + c.DBName,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", cmp.Or(c.SSLMode, "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnMaxLifetime returns the connection max lifetime as a duration
func (c Config) ConnMaxLifetime() time.Duration {
	if c.ConnMaxLifetimeMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// FromCentralConfig converts central config.DatabaseConfig to package Config
func FromCentralConfig(c config.DatabaseConfig) Config {
	timeout := 30 * time.Second
	if c.ConnectTimeoutSeconds > 0 {
		timeout = time.Duration(c.ConnectTimeoutSeconds) * time.Second
	}
	return Config{
		Host:               c.Host,
		Port:               c.Port,
		User:               c.User,
		Password:           c.Password,
		DBName:             c.DBName,
		SSLMode:            c.SSLMode,
		ConnectTimeout:     timeout,
		MaxOpenConns:       c.Pool.MaxOpenConns,
		MaxIdleConns:       c.Pool.MaxIdleConns,
		ConnMaxLifetimeMin: c.Pool.ConnMaxLifetimeMin,
		AutoMigrate:        c.Migrations.AutoMigrate,
	}
}
