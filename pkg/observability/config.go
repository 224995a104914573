package observability

import (
	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/pkg/constants"
)

// FromCentralConfig converts the central observability section to package Config.
func FromCentralConfig(c *config.Config) Config {
	name := c.Observability.ServiceName
	if name == "" {
		name = constants.AppName
	}
	return Config{
		ServiceName:    name,
		ServiceVersion: c.Observability.ServiceVersion,
		Environment:    c.Server.Environment,
		TracingEnabled: c.Observability.Tracing.Enabled,
		OTLPEndpoint:   c.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   c.Observability.Tracing.OTLPInsecure,
		SamplingRate:   c.Observability.Tracing.SamplingRate,
		MetricsEnabled: c.Observability.Metrics.Enabled,
	}
}
