package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "crm", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.DB.SSLMode = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	c.DB.SSLMode = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_TwilioOptionalButConsistent(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("twilio absent should validate, got %v", err)
	}

	c = validBase()
	c.Twilio = TwilioConfig{AccountSID: "AC123", AuthToken: "tok"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error: account configured without api key pair and caller id")
	}

	c = validBase()
	c.Twilio = TwilioConfig{
		AccountSID:   "AC123",
		AuthToken:    "tok",
		APIKeySID:    "SK123",
		APIKeySecret: "sekrit",
		CallerID:     "+15550001111",
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Twilio.VoiceTokenTTL != time.Hour {
		t.Fatalf("expected default voice token ttl 1h, got %v", c.Twilio.VoiceTokenTTL)
	}
}

func TestValidate_VoiceTokenTTLCapped(t *testing.T) {
	c := validBase()
	c.Twilio.VoiceTokenTTL = 48 * time.Hour
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for voice token ttl over 24h")
	}
}

func TestValidate_AIModelRequiredWithKey(t *testing.T) {
	c := validBase()
	c.AI = AIConfig{BaseURL: "https://api.example.com", APIKey: "k"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for AI key without model")
	}
}

func TestValidate_AgentDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Agent.UserID != "agent" || c.Agent.WorkspaceID != "default" {
		t.Fatalf("expected agent defaults, got %+v", c.Agent)
	}

	c = validBase()
	c.Agent = AgentConfig{UserID: "u-1", WorkspaceID: "ws-1"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Agent.UserID != "u-1" || c.Agent.WorkspaceID != "ws-1" {
		t.Fatalf("explicit agent identity overwritten: %+v", c.Agent)
	}
}
