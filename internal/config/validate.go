package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Quota limits must be positive; the operating timezone must resolve.
	if c.Quota.DefaultDailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_DEFAULT_DAILY_LIMIT must be positive, got %d", c.Quota.DefaultDailyLimit))
	}
	if c.Quota.AddressLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_ADDRESS_DAILY_LIMIT must be positive, got %d", c.Quota.AddressLimit))
	}
	if c.Quota.UserAgentLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_USERAGENT_DAILY_LIMIT must be positive, got %d", c.Quota.UserAgentLimit))
	}
	if c.Quota.Email2NameLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_EMAIL2NAME_DAILY_LIMIT must be positive, got %d", c.Quota.Email2NameLimit))
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("QUOTA_TIMEZONE %q is not a valid IANA timezone", c.Quota.Timezone))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
