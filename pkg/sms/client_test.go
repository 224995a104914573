package sms

import (
	"context"
	"testing"

	"github.com/Alijeyrad/simorq_queue/config"
)

func TestNewFromConfig_Disabled(t *testing.T) {
	client, err := NewFromConfig(config.SMSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if client.IsEnabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestNewFromConfig_EnabledWithoutAPIKey(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR: config.SMSIRConfig{
			TurnTemplateID: "100",
		},
	}

	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when API key is missing")
	}
}

func TestNewFromConfig_EnabledWithAPIKey(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR: config.SMSIRConfig{
			APIKey:         "test-api-key",
			SecretKey:      "test-secret-key",
			TurnTemplateID: "100",
		},
	}

	client, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if !client.IsEnabled() {
		t.Error("Expected client to be enabled")
	}
}

func TestSendTemplate_DisabledClient(t *testing.T) {
	client := &Client{enabled: false}

	err := client.SendTemplate(context.Background(), "+989121234567", "100", map[string]string{"name": "Sara"})
	if err != nil {
		t.Errorf("Expected no error for disabled client, got: %v", err)
	}
}

func TestSendTemplate_Validation(t *testing.T) {
	client := &Client{enabled: true}

	tests := []struct {
		name       string
		phone      string
		templateID string
	}{
		{name: "empty phone number", phone: "", templateID: "100"},
		{name: "empty template ID", phone: "+989121234567", templateID: ""},
		{name: "unparseable phone", phone: "not a number", templateID: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.SendTemplate(context.Background(), tt.phone, tt.templateID, nil); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}

func TestTemplateParams(t *testing.T) {
	got := templateParams(map[string]string{"name": "Sara", "ahead": "2"})
	if len(got) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(got))
	}

	if got[0].Key != "ahead" || got[0].Value != "2" || got[1].Key != "name" || got[1].Value != "Sara" {
		t.Errorf("Unexpected parameters: %v", got)
	}
}

func TestMobileNumber(t *testing.T) {
	tests := []struct {
		raw, want string
		wantErr   bool
	}{
		{raw: "+989121234567", want: "09121234567"},
		{raw: "09121234567", want: "09121234567"},
		{raw: "+16502530000", want: "+16502530000"},
		{raw: "12", wantErr: true},
	}

	for _, tt := range tests {
		got, err := mobileNumber(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("mobileNumber(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("mobileNumber(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}
