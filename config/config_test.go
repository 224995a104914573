package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Queue.Store)
	assert.Equal(t, "IR", cfg.Queue.PhoneRegion)
	assert.Equal(t, 15, cfg.Queue.Defaults.AvgServiceMinutes)
	assert.Equal(t, "09:00", cfg.Queue.Defaults.StartTime)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 256, cfg.Notify.BufferSize)
	assert.Equal(t, 587, cfg.Email.SMTP.Port)
	assert.True(t, cfg.Email.SMTP.UseTLS)
	assert.Equal(t, 20, cfg.Live.HeartbeatSeconds)
}

func TestReadConfig_FileValues(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, `
queue:
  store: redis
  timezone: Asia/Tehran
  defaults:
    max_capacity: 40
    auto_close: true
notify:
  enabled: true
  ahead_positions: 2
sms:
  enabled: true
  smsir:
    api_key: key
    turn_template_id: "100"
`))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Queue.Store)
	assert.Equal(t, "Asia/Tehran", cfg.Queue.Timezone)
	assert.Equal(t, 40, cfg.Queue.Defaults.MaxCapacity)
	assert.True(t, cfg.Queue.Defaults.AutoClose)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, 2, cfg.Notify.AheadPositions)
	assert.Equal(t, "100", cfg.SMS.SMSIR.TurnTemplateID)
}

func TestReadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SIMORQ_QUEUE_STORE", "postgres")

	cfg, err := ReadConfig(writeConfig(t, "queue:\n  store: memory\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Queue.Store)
}

func TestReadConfig_Invalid(t *testing.T) {
	_, err := ReadConfig(writeConfig(t, "queue:\n  store: mongo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "mongo"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero value is valid", mutate: func(*Config) {}},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.Queue.Defaults.MaxCapacity = -1 },
			wantErr: "max_capacity",
		},
		{
			name:    "negative service minutes",
			mutate:  func(c *Config) { c.Queue.Defaults.AvgServiceMinutes = -5 },
			wantErr: "avg_service_minutes",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Queue.Timezone = "Mars/Olympus" },
			wantErr: "queue.timezone",
		},
		{
			name:    "negative ahead positions",
			mutate:  func(c *Config) { c.Notify.AheadPositions = -1 },
			wantErr: "ahead_positions",
		},
		{
			name:    "email without sender",
			mutate:  func(c *Config) { c.Email.Enabled = true },
			wantErr: "email.from",
		},
		{
			name: "auth disabled in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Authentication.Disabled = true
			},
			wantErr: "authentication.disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
