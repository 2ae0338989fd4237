package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gentools-platform/gentools/internal/config"
	"github.com/gentools-platform/gentools/internal/events"
	"github.com/gentools-platform/gentools/internal/metrics"
)

var (
	ErrUnknownAPIType   = errors.New("unknown api type")
	ErrMissingUser      = errors.New("missing user id")
	ErrInvalidLimit     = errors.New("daily limit must be a positive integer")
	ErrOverrideNotFound = errors.New("no limit override for this user and api type")
)

// AuditPublisher receives quota audit events. Publishing is best effort and
// never blocks an admission decision.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event events.AuditEvent) error
}

// Service is the daily quota tracker: it gates each generator call by a
// per-user daily ceiling and exposes the admin override operations.
type Service struct {
	repo  Repository
	cfg   config.QuotaConfig
	loc   *time.Location
	audit AuditPublisher

	now func() time.Time
}

func NewService(repo Repository, cfg config.QuotaConfig, audit AuditPublisher) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading quota timezone %q: %w", cfg.Timezone, err)
	}
	return &Service{
		repo:  repo,
		cfg:   cfg,
		loc:   loc,
		audit: audit,
		now:   time.Now,
	}, nil
}

// today resolves the current calendar date in the operating timezone,
// normalized to a bare date value for the usage_date column.
func (s *Service) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) defaultLimit(apiType APIType) int {
	switch apiType {
	case APITypeAddressGenerator:
		return s.cfg.AddressLimit
	case APITypeUserAgent:
		return s.cfg.UserAgentLimit
	case APITypeEmail2Name:
		return s.cfg.Email2NameLimit
	}
	return s.cfg.DefaultDailyLimit
}

// CheckAndConsume decides admit/deny for one call and increments the daily
// counter on admission. The effective limit is recomputed from the override
// table on every call, so admin changes take effect immediately. Persistence
// failures fail closed: the caller gets an error, never a free admission.
func (s *Service) CheckAndConsume(ctx context.Context, userID uuid.UUID, apiType APIType) (*RateLimitResult, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return nil, ErrUnknownAPIType
	}

	eff, err := s.EffectiveLimit(ctx, userID, apiType)
	if err != nil {
		metrics.QuotaChecksTotal.WithLabelValues(string(apiType), "error").Inc()
		return nil, err
	}

	count, admitted, err := s.repo.IncrementIfAllowed(ctx, userID, apiType, s.today(), eff.DailyLimit, eff.IsUnlimited)
	if err != nil {
		metrics.QuotaChecksTotal.WithLabelValues(string(apiType), "error").Inc()
		return nil, err
	}

	result := &RateLimitResult{
		Success:    admitted,
		DailyCount: count,
		DailyLimit: eff.DailyLimit,
		Unlimited:  eff.IsUnlimited,
	}
	switch {
	case eff.IsUnlimited:
		// Unlimited users are counted for bookkeeping only.
	case admitted:
		result.Remaining = eff.DailyLimit - count
	default:
		result.Remaining = 0
		s.publishAudit(ctx, userID, "quota.denied", "warn", string(apiType),
			fmt.Sprintf("daily limit of %d reached", eff.DailyLimit))
	}

	if admitted {
		metrics.QuotaChecksTotal.WithLabelValues(string(apiType), "admitted").Inc()
	} else {
		metrics.QuotaChecksTotal.WithLabelValues(string(apiType), "denied").Inc()
	}
	return result, nil
}

// EffectiveLimit returns the ceiling enforced for a (user, api_type) pair:
// the admin override when one exists, else the global default. Pure lookup.
func (s *Service) EffectiveLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (EffectiveLimit, error) {
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return EffectiveLimit{}, ErrUnknownAPIType
	}

	override, err := s.repo.GetUserLimit(ctx, userID, apiType)
	if err != nil {
		return EffectiveLimit{}, err
	}
	if override == nil {
		return EffectiveLimit{DailyLimit: s.defaultLimit(apiType)}, nil
	}

	eff := EffectiveLimit{DailyLimit: override.DailyLimit, IsUnlimited: override.IsUnlimited}
	if eff.IsUnlimited && eff.DailyLimit <= 0 {
		// daily_limit is ignored for unlimited users; keep the display
		// value sane if the override never set one.
		eff.DailyLimit = s.defaultLimit(apiType)
	}
	return eff, nil
}

// ResetDailyUsage zeroes today's counter for a (user, api_type) pair.
// Idempotent; other days' records are untouched.
func (s *Service) ResetDailyUsage(ctx context.Context, userID uuid.UUID, apiType APIType) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return ErrUnknownAPIType
	}

	if err := s.repo.ResetUsage(ctx, userID, apiType, s.today()); err != nil {
		return err
	}
	s.publishAudit(ctx, userID, "quota.reset", "info", string(apiType), "daily usage reset to 0")
	return nil
}

// UpsertUserLimit creates or replaces the override for a (user, api_type)
// pair. It does not touch existing usage rows; the new limit applies from
// the next check.
func (s *Service) UpsertUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType, dailyLimit int, isUnlimited bool) (*UserLimit, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return nil, ErrUnknownAPIType
	}
	if !isUnlimited && dailyLimit < 1 {
		return nil, ErrInvalidLimit
	}

	limit := &UserLimit{
		UserID:      userID,
		APIType:     apiType,
		DailyLimit:  dailyLimit,
		IsUnlimited: isUnlimited,
	}
	if err := s.repo.UpsertUserLimit(ctx, limit); err != nil {
		return nil, err
	}
	s.publishAudit(ctx, userID, "quota.limit_updated", "info", string(apiType),
		fmt.Sprintf("daily_limit=%d is_unlimited=%t", dailyLimit, isUnlimited))
	return limit, nil
}

// DeleteUserLimit removes the override, restoring the global default.
// Deleting a missing override reports ErrOverrideNotFound.
func (s *Service) DeleteUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return ErrUnknownAPIType
	}

	found, err := s.repo.DeleteUserLimit(ctx, userID, apiType)
	if err != nil {
		return err
	}
	if !found {
		return ErrOverrideNotFound
	}
	s.publishAudit(ctx, userID, "quota.limit_deleted", "info", string(apiType), "override removed, default restored")
	return nil
}

// UserStatus reports today's usage for every API type for one user.
// Types without a usage row yet show a zero count.
func (s *Service) UserStatus(ctx context.Context, userID uuid.UUID) ([]UsageStatus, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}

	records, err := s.repo.ListUserUsage(ctx, userID, s.today())
	if err != nil {
		return nil, err
	}
	counts := make(map[APIType]int, len(records))
	for _, rec := range records {
		counts[rec.APIType] = rec.DailyCount
	}

	statuses := make([]UsageStatus, 0, len(AllAPITypes()))
	for _, apiType := range AllAPITypes() {
		eff, err := s.EffectiveLimit(ctx, userID, apiType)
		if err != nil {
			return nil, err
		}
		st := UsageStatus{
			APIType:    apiType,
			DailyCount: counts[apiType],
			DailyLimit: eff.DailyLimit,
			Unlimited:  eff.IsUnlimited,
		}
		if !st.Unlimited {
			st.Remaining = max(eff.DailyLimit-st.DailyCount, 0)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// ListTodayUsage returns the paginated admin view of today's usage rows for
// one API type, with effective limits derived at read time.
func (s *Service) ListTodayUsage(ctx context.Context, apiType APIType, params ListParams) ([]*UsageListEntry, int64, error) {
	if _, err := ParseAPIType(string(apiType)); err != nil {
		return nil, 0, ErrUnknownAPIType
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	day := s.today()
	total, err := s.repo.CountUsageByDate(ctx, apiType, day)
	if err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.PageSize
	entries, err := s.repo.ListUsageByDate(ctx, apiType, day, s.defaultLimit(apiType), params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Service) publishAudit(ctx context.Context, userID uuid.UUID, eventType, severity, apiType, details string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.PublishAuditEvent(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    eventType,
		Severity:     severity,
		ResourceType: "api_quota",
		ResourceID:   apiType,
		Details:      details,
		Timestamp:    s.now().UTC(),
	})
}
