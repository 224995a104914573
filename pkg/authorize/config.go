package authorize

import "github.com/Alijeyrad/simorq_queue/config"

// Config holds configuration for the authorization system
type Config struct {
	// PolicyPath optionally replaces the built-in role policies with a CSV file.
	PolicyPath string

	// EnableAudit enables audit logging for all authorization decisions
	EnableAudit bool
}

// FromCentralConfig converts central config.AuthorizationConfig to package Config
func FromCentralConfig(c config.AuthorizationConfig) Config {
	return Config{
		PolicyPath:  c.PolicyPath,
		EnableAudit: c.EnableAudit,
	}
}
