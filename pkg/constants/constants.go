package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"
	ConfigPath   = "."

	AppName = "simorq-queue"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)
