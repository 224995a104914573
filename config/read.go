package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Alijeyrad/simorq_queue/pkg/constants"
	"github.com/spf13/viper"
)

var GlobalConf *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", constants.EnvDevelopment)
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("queue.store", constants.StoreMemory)
	v.SetDefault("queue.lock_timeout_seconds", 5)
	v.SetDefault("queue.lock_ttl_seconds", 10)
	v.SetDefault("queue.key_prefix", "simorq:queue")
	v.SetDefault("queue.timezone", "Local")
	v.SetDefault("queue.phone_region", "IR")
	v.SetDefault("queue.defaults.avg_service_minutes", 15)
	v.SetDefault("queue.defaults.start_time", "09:00")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.connect_timeout_seconds", 30)
	v.SetDefault("database.pool.max_open_conns", 25)
	v.SetDefault("database.pool.max_idle_conns", 5)

	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authentication.paseto.issuer", "simorq")
	v.SetDefault("authentication.paseto.audience", "simorq-queue")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 15)

	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.buffer_size", 256)
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout_seconds", 30)

	v.SetDefault("live.heartbeat_seconds", 20)
	v.SetDefault("live.buffer_size", 16)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)
	v.SetDefault("observability.metrics.path", "/metrics")
}

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. SIMORQ_QUEUE_STORE overrides queue.store
	v.SetEnvPrefix("SIMORQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional when the environment carries the settings.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if os.Getenv("SIMORQ_QUEUE_STORE") == "" {
			fmt.Fprintln(os.Stderr, "config file not found, using defaults")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}
