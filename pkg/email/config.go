package email

import (
	"cmp"
	"time"

	"github.com/Alijeyrad/simorq_queue/config"
)

const (
	defaultPort    = 587
	defaultTimeout = 30 * time.Second
	// implicitTLSPort speaks TLS from the first byte; other ports upgrade
	// with STARTTLS when the server offers it.
	implicitTLSPort = 465
)

type Config struct {
	Enabled  bool
	From     string
	FromName string

	Host     string
	Port     int
	Username string
	Password string
	// VerifyTLS checks the server certificate against Host.
	VerifyTLS bool
	Timeout   time.Duration
}

// FromCentralConfig maps the email section of the app config.
func FromCentralConfig(c config.EmailConfig) Config {
	timeout := defaultTimeout
	if c.SMTP.TimeoutSeconds > 0 {
		timeout = time.Duration(c.SMTP.TimeoutSeconds) * time.Second
	}
	return Config{
		Enabled:   c.Enabled,
		From:      c.From,
		FromName:  c.FromName,
		Host:      c.SMTP.Host,
		Port:      cmp.Or(c.SMTP.Port, defaultPort),
		Username:  c.SMTP.Username,
		Password:  c.SMTP.Password,
		VerifyTLS: c.SMTP.UseTLS,
		Timeout:   timeout,
	}
}
