// Package email sends queue notices over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Alijeyrad/simorq_queue/config"
)

type Client struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewFromCentral(cfg config.EmailConfig) (*Client, error) {
	return New(FromCentralConfig(cfg))
}

// New returns a client. A disabled client is valid and rejects every send
// with ErrDisabled.
func New(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{cfg: cfg}, nil
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: smtp host is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from address: %v", ErrInvalidConfig, err)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == implicitTLSPort
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: !cfg.VerifyTLS}
	return &Client{cfg: cfg, dialer: d}, nil
}

func (c *Client) IsEnabled() bool {
	return c.cfg.Enabled
}

// Send delivers m, giving up at the earlier of ctx's deadline and the
// configured timeout. The SMTP exchange itself cannot be interrupted, so an
// abandoned attempt finishes in the background.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}

	msg, err := c.compose(m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return &SendError{Host: c.cfg.Host, Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) compose(m Message) (*gomail.Message, error) {
	to, err := mail.ParseAddress(strings.TrimSpace(m.To))
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}

	msg := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	if c.cfg.FromName != "" {
		msg.SetAddressHeader("From", c.cfg.From, c.cfg.FromName)
	} else {
		msg.SetHeader("From", c.cfg.From)
	}
	msg.SetHeader("To", to.Address)
	msg.SetHeader("Subject", subject)
	msg.SetDateHeader("Date", time.Now())
	for k, v := range m.Headers {
		if k = strings.TrimSpace(k); k != "" {
			msg.SetHeader(k, strings.TrimSpace(v))
		}
	}

	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	case m.Text != "":
		msg.SetBody("text/plain", m.Text)
	default:
		return nil, fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return msg, nil
}
