package quota

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIType identifies which generator feature a quota applies to.
type APIType string

const (
	APITypeAddressGenerator APIType = "address_generator"
	APITypeUserAgent        APIType = "user_agent"
	APITypeEmail2Name       APIType = "email2name"
)

// AllAPITypes returns every known API type in a stable order.
func AllAPITypes() []APIType {
	return []APIType{APITypeAddressGenerator, APITypeUserAgent, APITypeEmail2Name}
}

// ParseAPIType validates a raw api_type string.
func ParseAPIType(s string) (APIType, error) {
	switch APIType(s) {
	case APITypeAddressGenerator, APITypeUserAgent, APITypeEmail2Name:
		return APIType(s), nil
	}
	return "", fmt.Errorf("unknown api_type %q", s)
}

// UsageRecord matches the api_daily_usage table schema: one row per
// (user, api_type, day), lazily created on the first admitted call.
type UsageRecord struct {
	UserID     uuid.UUID `json:"user_id"`
	APIType    APIType   `json:"api_type"`
	UsageDate  time.Time `json:"usage_date"`
	DailyCount int       `json:"daily_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// UserLimit matches the api_user_limits table schema: an admin-managed
// per-user override of the global default daily limit.
type UserLimit struct {
	UserID      uuid.UUID `json:"user_id"`
	APIType     APIType   `json:"api_type"`
	DailyLimit  int       `json:"daily_limit"`
	IsUnlimited bool      `json:"is_unlimited"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectiveLimit is the ceiling actually enforced for a (user, api_type)
// pair: the override when one exists, else the global default.
type EffectiveLimit struct {
	DailyLimit  int  `json:"daily_limit"`
	IsUnlimited bool `json:"is_unlimited"`
}

// RateLimitResult is the outcome of a single quota check.
type RateLimitResult struct {
	Success    bool
	DailyCount int
	DailyLimit int
	Remaining  int
	Unlimited  bool
}

// MarshalJSON renders remaining as the string "unlimited" for unlimited
// users instead of a sentinel number.
func (r RateLimitResult) MarshalJSON() ([]byte, error) {
	var remaining any = r.Remaining
	if r.Unlimited {
		remaining = "unlimited"
	}
	return json.Marshal(struct {
		Success    bool `json:"success"`
		DailyCount int  `json:"daily_count"`
		DailyLimit int  `json:"daily_limit"`
		Remaining  any  `json:"remaining"`
		Unlimited  bool `json:"unlimited"`
	}{
		Success:    r.Success,
		DailyCount: r.DailyCount,
		DailyLimit: r.DailyLimit,
		Remaining:  remaining,
		Unlimited:  r.Unlimited,
	})
}

// UsageStatus is one entry of the self-service quota view: today's usage
// for a single API type with the effective limit applied.
type UsageStatus struct {
	APIType    APIType `json:"api_type"`
	DailyCount int     `json:"daily_count"`
	DailyLimit int     `json:"daily_limit"`
	Remaining  int     `json:"remaining"`
	Unlimited  bool    `json:"unlimited"`
}

// UsageListEntry is one row of the admin usage listing, with the effective
// limit derived from override-or-default at read time.
type UsageListEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	APIType     APIType   `json:"api_type"`
	DailyCount  int       `json:"daily_count"`
	DailyLimit  int       `json:"daily_limit"`
	IsUnlimited bool      `json:"is_unlimited"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// ListParams holds pagination parameters for the admin usage listing.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
