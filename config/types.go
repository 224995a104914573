package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

type Config struct {
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Server         ServerConfig         `mapstructure:"server"`
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Authorization  AuthorizationConfig  `mapstructure:"authorization"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Live           LiveConfig           `mapstructure:"live"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Nats           NatsConfig           `mapstructure:"nats"`
	Notify         NotifyConfig         `mapstructure:"notify"`
	Email          EmailConfig          `mapstructure:"email"`
	SMS            SMSConfig            `mapstructure:"sms"`
}

type NatsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	// ConnectTimeoutSeconds bounds how long startup keeps retrying the first ping.
	ConnectTimeoutSeconds int                     `mapstructure:"connect_timeout_seconds"`
	Pool                  DatabasePoolConfig      `mapstructure:"pool"`
	Migrations            DatabaseMigrationConfig `mapstructure:"migrations"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

type AuthenticationConfig struct {
	// Disabled turns off token verification. Only honoured outside production.
	Disabled bool         `mapstructure:"disabled"`
	Paseto   PasetoConfig `mapstructure:"paseto"`
}

// PasetoConfig describes how staff tokens are verified. Tokens normally come
// from the identity service; SecretKeyHex is only needed to mint tokens locally.
type PasetoConfig struct {
	Mode             string `mapstructure:"mode"`
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	SecretKeyHex     string `mapstructure:"secret_key_hex"`
	PublicKeyHex     string `mapstructure:"public_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
}

type AuthorizationConfig struct {
	// PolicyPath optionally points at a casbin CSV policy that replaces the built-in one.
	PolicyPath  string `mapstructure:"policy_path"`
	EnableAudit bool   `mapstructure:"enable_audit"`
}

// QueueConfig controls the queue store and the defaults applied to newly
// registered clinics.
type QueueConfig struct {
	Store              string              `mapstructure:"store"` // memory, redis, postgres
	LockTimeoutSeconds int                 `mapstructure:"lock_timeout_seconds"`
	LockTTLSeconds     int                 `mapstructure:"lock_ttl_seconds"`
	KeyPrefix          string              `mapstructure:"key_prefix"`
	Timezone           string              `mapstructure:"timezone"`
	PhoneRegion        string              `mapstructure:"phone_region"`
	Defaults           QueueDefaultsConfig `mapstructure:"defaults"`
}

type QueueDefaultsConfig struct {
	MaxCapacity       int    `mapstructure:"max_capacity"`
	AvgServiceMinutes int    `mapstructure:"avg_service_minutes"`
	AutoClose         bool   `mapstructure:"auto_close"`
	StartTime         string `mapstructure:"start_time"`
}

// NotifyConfig controls turn notifications sent to patients by SMS or email.
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AheadPositions sends an "almost your turn" notice once at most this many
	// patients are ahead. Zero sends only the "your turn" notice.
	AheadPositions int `mapstructure:"ahead_positions"`
	Workers        int `mapstructure:"workers"`
	BufferSize     int `mapstructure:"buffer_size"`
}

type EmailConfig struct {
	Enabled  bool       `mapstructure:"enabled"`
	From     string     `mapstructure:"from"`
	FromName string     `mapstructure:"from_name"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SMSConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	SMSIR   SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	// Template ids; each template takes the parameters name, clinic and ahead.
	TurnTemplateID string `mapstructure:"turn_template_id"`
	SoonTemplateID string `mapstructure:"soon_template_id"`
}

type LiveConfig struct {
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
	BufferSize       int `mapstructure:"buffer_size"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/app.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	Username string `mapstructure:"username"` // for Grafana Cloud basic auth
	Password string `mapstructure:"password"`
}

var validStores = []string{"memory", "redis", "postgres"}

func (c *Config) Validate() error {
	var errs []error

	if c.Queue.Store != "" && !slices.Contains(validStores, c.Queue.Store) {
		errs = append(errs, fmt.Errorf("queue.store: unknown store %q", c.Queue.Store))
	}
	if c.Queue.LockTimeoutSeconds < 0 {
		errs = append(errs, errors.New("queue.lock_timeout_seconds must not be negative"))
	}
	if c.Queue.Defaults.AvgServiceMinutes < 0 {
		errs = append(errs, errors.New("queue.defaults.avg_service_minutes must not be negative"))
	}
	if c.Queue.Defaults.MaxCapacity < 0 {
		errs = append(errs, errors.New("queue.defaults.max_capacity must not be negative"))
	}
	if _, err := time.LoadLocation(c.Queue.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("queue.timezone: %w", err))
	}
	if c.Notify.AheadPositions < 0 {
		errs = append(errs, errors.New("notify.ahead_positions must not be negative"))
	}
	if c.Email.Enabled && c.Email.From == "" {
		errs = append(errs, errors.New("email.from is required when email is enabled"))
	}
	if c.Server.Environment == "production" && c.Authentication.Disabled {
		errs = append(errs, errors.New("authentication.disabled is not allowed in production"))
	}

	return errors.Join(errs...)
}
