package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "gentools",
			Password: "secret", Name: "gentools", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret:  "access-secret-that-is-at-least-32-chars!",
			RefreshSecret: "refresh-secret-that-is-at-least-32-chr!",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		Quota: QuotaConfig{
			Timezone:          "UTC",
			DefaultDailyLimit: 200,
			AddressLimit:      200,
			UserAgentLimit:    200,
			Email2NameLimit:   200,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTAccessSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTRefreshSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_REFRESH_SECRET") {
		t.Fatalf("expected JWT_REFRESH_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTSecretsMustDiffer(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "the-same-secret-that-is-at-least-32-chars!"
	cfg.JWT.RefreshSecret = "the-same-secret-that-is-at-least-32-chars!"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected 'must differ' error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_QuotaLimitsMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.DefaultDailyLimit = 0
	cfg.Quota.Email2NameLimit = -5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected quota limit validation errors")
	}
	if !strings.Contains(err.Error(), "QUOTA_DEFAULT_DAILY_LIMIT") {
		t.Errorf("expected QUOTA_DEFAULT_DAILY_LIMIT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "QUOTA_EMAIL2NAME_DAILY_LIMIT") {
		t.Errorf("expected QUOTA_EMAIL2NAME_DAILY_LIMIT error in: %v", err)
	}
}

func TestValidate_QuotaTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.Timezone = "Mars/Olympus_Mons"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "QUOTA_TIMEZONE") {
		t.Fatalf("expected QUOTA_TIMEZONE error, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		DB:     DBConfig{Port: 5432},
		Redis:  RedisConfig{Port: 6379},
		Quota:  QuotaConfig{Timezone: "UTC", DefaultDailyLimit: 200, AddressLimit: 200, UserAgentLimit: 200, Email2NameLimit: 200},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET", "DB_PASSWORD", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}
