package sms

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/arsmn/go-smsir/smsir"
	"github.com/nyaruka/phonenumbers"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_queue/config"
)

// Client provides SMS sending functionality via sms.ir.
type Client struct {
	client  *smsir.Client
	enabled bool
}

// NewFromConfig creates a new SMS client from the application configuration.
// If SMS is disabled, returns a client that no-ops on all operations.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{enabled: false}, nil
	}

	if cfg.SMSIR.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key required when SMS enabled")
	}

	client := smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey)

	return &Client{
		client:  client,
		enabled: true,
	}, nil
}

// SendTemplate sends a templated message through the sms.ir fast-send API.
// Every key in params must exist as a parameter of the template.
// If SMS is disabled, this is a no-op and returns nil.
func (c *Client) SendTemplate(ctx context.Context, phoneNumber, templateID string, params map[string]string) error {
	if !c.enabled {
		return nil
	}

	if phoneNumber == "" {
		return fmt.Errorf("phone number is required")
	}
	if templateID == "" {
		return fmt.Errorf("template ID is required")
	}

	mobile, err := mobileNumber(phoneNumber)
	if err != nil {
		return err
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: templateID,
		Parameters: templateParams(params),
	}

	if _, err := c.client.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}

	return nil
}

// IsEnabled returns whether SMS sending is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// mobileNumber converts a stored number to what sms.ir accepts: the
// national "09..." form for Iranian numbers, E.164 for anything else.
func mobileNumber(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), "IR")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	if num.GetCountryCode() == 98 {
		return "0" + phonenumbers.GetNationalSignificantNumber(num), nil
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// templateParams is sorted by key so requests are stable.
func templateParams(params map[string]string) []smsir.UltraFastParameter {
	keys := lo.Keys(params)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) smsir.UltraFastParameter {
		return smsir.UltraFastParameter{Key: k, Value: params[k]}
	})
}
