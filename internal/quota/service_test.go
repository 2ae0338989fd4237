package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gentools-platform/gentools/internal/config"
	"github.com/gentools-platform/gentools/internal/events"
)

type usageKey struct {
	userID  uuid.UUID
	apiType APIType
	day     time.Time
}

type limitKey struct {
	userID  uuid.UUID
	apiType APIType
}

// fakeRepository is an in-memory Repository with the same atomic
// check-then-increment contract as the Postgres implementation.
type fakeRepository struct {
	mu     sync.Mutex
	usage  map[usageKey]int
	limits map[limitKey]*UserLimit

	incrementErr error
	getLimitErr  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usage:  make(map[usageKey]int),
		limits: make(map[limitKey]*UserLimit),
	}
}

func (f *fakeRepository) IncrementIfAllowed(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time, limit int, unlimited bool) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return 0, false, f.incrementErr
	}
	key := usageKey{userID, apiType, day}
	count := f.usage[key]
	if !unlimited && count >= limit {
		return count, false, nil
	}
	count++
	f.usage[key] = count
	return count, true, nil
}

func (f *fakeRepository) GetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) (*UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.usage[usageKey{userID, apiType, day}]
	if !ok {
		return nil, nil
	}
	return &UsageRecord{UserID: userID, APIType: apiType, UsageDate: day, DailyCount: count}, nil
}

func (f *fakeRepository) ListUserUsage(ctx context.Context, userID uuid.UUID, day time.Time) ([]*UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []*UsageRecord
	for key, count := range f.usage {
		if key.userID == userID && key.day.Equal(day) {
			records = append(records, &UsageRecord{UserID: userID, APIType: key.apiType, UsageDate: day, DailyCount: count})
		}
	}
	return records, nil
}

func (f *fakeRepository) ResetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := usageKey{userID, apiType, day}
	if _, ok := f.usage[key]; ok {
		f.usage[key] = 0
	}
	return nil
}

func (f *fakeRepository) GetUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (*UserLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getLimitErr != nil {
		return nil, f.getLimitErr
	}
	return f.limits[limitKey{userID, apiType}], nil
}

func (f *fakeRepository) UpsertUserLimit(ctx context.Context, limit *UserLimit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[limitKey{limit.UserID, limit.APIType}] = limit
	return nil
}

func (f *fakeRepository) DeleteUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := limitKey{userID, apiType}
	if _, ok := f.limits[key]; !ok {
		return false, nil
	}
	delete(f.limits, key)
	return true, nil
}

func (f *fakeRepository) ListUsageByDate(ctx context.Context, apiType APIType, day time.Time, defaultLimit, limit, offset int) ([]*UsageListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []*UsageListEntry
	for key, count := range f.usage {
		if key.apiType == apiType && key.day.Equal(day) {
			entries = append(entries, &UsageListEntry{
				UserID:     key.userID,
				APIType:    apiType,
				DailyCount: count,
				DailyLimit: defaultLimit,
			})
		}
	}
	return entries, nil
}

func (f *fakeRepository) CountUsageByDate(ctx context.Context, apiType APIType, day time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for key := range f.usage {
		if key.apiType == apiType && key.day.Equal(day) {
			total++
		}
	}
	return total, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.AuditEvent
}

func (p *capturingPublisher) PublishAuditEvent(ctx context.Context, event events.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []events.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.AuditEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() config.QuotaConfig {
	return config.QuotaConfig{
		Timezone:          "UTC",
		DefaultDailyLimit: 200,
		AddressLimit:      200,
		UserAgentLimit:    200,
		Email2NameLimit:   200,
	}
}

func newTestService(t *testing.T, repo Repository, cfg config.QuotaConfig, audit AuditPublisher) *Service {
	t.Helper()
	svc, err := NewService(repo, cfg, audit)
	require.NoError(t, err)
	return svc
}

func TestNewService_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	_, err := NewService(newFakeRepository(), cfg, nil)
	assert.Error(t, err)
}

func TestCheckAndConsume_AdmitsUntilLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AddressLimit = 3
	svc := newTestService(t, newFakeRepository(), cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	for i := 1; i <= 3; i++ {
		result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
		require.NoError(t, err)
		assert.True(t, result.Success, "call %d should be admitted", i)
		assert.Equal(t, i, result.DailyCount)
		assert.Equal(t, 3-i, result.Remaining)
	}

	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.DailyCount)
	assert.Equal(t, 0, result.Remaining)
}

func TestCheckAndConsume_DenialPublishesAudit(t *testing.T) {
	cfg := testConfig()
	cfg.UserAgentLimit = 1
	pub := &capturingPublisher{}
	svc := newTestService(t, newFakeRepository(), cfg, pub)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CheckAndConsume(ctx, userID, APITypeUserAgent)
	require.NoError(t, err)
	result, err := svc.CheckAndConsume(ctx, userID, APITypeUserAgent)
	require.NoError(t, err)
	require.False(t, result.Success)

	denied := pub.byType("quota.denied")
	require.Len(t, denied, 1)
	assert.Equal(t, userID, denied[0].UserID)
	assert.Equal(t, string(APITypeUserAgent), denied[0].ResourceID)
}

func TestCheckAndConsume_TypesAreIndependent(t *testing.T) {
	cfg := testConfig()
	cfg.AddressLimit = 1
	svc := newTestService(t, newFakeRepository(), cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.False(t, result.Success)

	// Exhausting one type leaves the others untouched
	result, err = svc.CheckAndConsume(ctx, userID, APITypeEmail2Name)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCheckAndConsume_OverrideTakesPrecedence(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, testConfig(), nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpsertUserLimit(ctx, userID, APITypeAddressGenerator, 2, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.DailyLimit)
	}

	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestCheckAndConsume_OverrideAppliesMidDay(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.AddressLimit = 1
	svc := newTestService(t, repo, cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	require.False(t, result.Success)

	// Raising the limit re-admits immediately, without resetting the count
	_, err = svc.UpsertUserLimit(ctx, userID, APITypeAddressGenerator, 5, false)
	require.NoError(t, err)

	result, err = svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.DailyCount)
	assert.Equal(t, 3, result.Remaining)
}

func TestCheckAndConsume_Unlimited(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.Email2NameLimit = 2
	svc := newTestService(t, repo, cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpsertUserLimit(ctx, userID, APITypeEmail2Name, 0, true)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		result, err := svc.CheckAndConsume(ctx, userID, APITypeEmail2Name)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, result.Unlimited)
		assert.Equal(t, i, result.DailyCount, "unlimited users are still counted")
	}
}

func TestCheckAndConsume_UnknownAPIType(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), testConfig(), nil)

	_, err := svc.CheckAndConsume(context.Background(), uuid.New(), APIType("dns_lookup"))
	assert.ErrorIs(t, err, ErrUnknownAPIType)
}

func TestCheckAndConsume_MissingUser(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), testConfig(), nil)

	_, err := svc.CheckAndConsume(context.Background(), uuid.Nil, APITypeAddressGenerator)
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestCheckAndConsume_FailsClosedOnIncrementError(t *testing.T) {
	repo := newFakeRepository()
	repo.incrementErr = errors.New("connection refused")
	svc := newTestService(t, repo, testConfig(), nil)

	result, err := svc.CheckAndConsume(context.Background(), uuid.New(), APITypeAddressGenerator)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestCheckAndConsume_FailsClosedOnLimitLookupError(t *testing.T) {
	repo := newFakeRepository()
	repo.getLimitErr = errors.New("connection refused")
	svc := newTestService(t, repo, testConfig(), nil)

	result, err := svc.CheckAndConsume(context.Background(), uuid.New(), APITypeAddressGenerator)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestCheckAndConsume_ConcurrentAdmitsExactlyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AddressLimit = 50
	svc := newTestService(t, newFakeRepository(), cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	const callers = 80
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
			if err != nil {
				return
			}
			if result.Success {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
}

func TestCheckAndConsume_DayRollover(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.AddressLimit = 1
	svc := newTestService(t, repo, cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }

	_, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	require.False(t, result.Success)

	// Midnight passes: the counter starts fresh
	svc.now = func() time.Time { return day1.Add(24 * time.Hour) }

	result, err = svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.DailyCount)
}

func TestToday_OperatingTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "America/New_York"
	svc := newTestService(t, newFakeRepository(), cfg, nil)

	// 03:00 UTC on March 2nd is still March 1st in New York
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.today())

	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), svc.today())
}

func TestEffectiveLimit_DefaultWithoutOverride(t *testing.T) {
	cfg := testConfig()
	cfg.UserAgentLimit = 75
	svc := newTestService(t, newFakeRepository(), cfg, nil)

	eff, err := svc.EffectiveLimit(context.Background(), uuid.New(), APITypeUserAgent)
	require.NoError(t, err)
	assert.Equal(t, 75, eff.DailyLimit)
	assert.False(t, eff.IsUnlimited)
}

func TestEffectiveLimit_UnlimitedDisplaysDefault(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, testConfig(), nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpsertUserLimit(ctx, userID, APITypeAddressGenerator, 0, true)
	require.NoError(t, err)

	eff, err := svc.EffectiveLimit(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.True(t, eff.IsUnlimited)
	assert.Equal(t, 200, eff.DailyLimit)
}

func TestResetDailyUsage_ReopensAdmission(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.AddressLimit = 1
	pub := &capturingPublisher{}
	svc := newTestService(t, repo, cfg, pub)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	result, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	require.False(t, result.Success)

	require.NoError(t, svc.ResetDailyUsage(ctx, userID, APITypeAddressGenerator))

	result, err = svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.DailyCount)

	assert.Len(t, pub.byType("quota.reset"), 1)
}

func TestResetDailyUsage_Idempotent(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), testConfig(), nil)
	ctx := context.Background()
	userID := uuid.New()

	// No usage row yet; reset is a no-op, not an error
	assert.NoError(t, svc.ResetDailyUsage(ctx, userID, APITypeUserAgent))
	assert.NoError(t, svc.ResetDailyUsage(ctx, userID, APITypeUserAgent))
}

func TestUpsertUserLimit_RejectsNonPositiveLimit(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), testConfig(), nil)
	ctx := context.Background()

	_, err := svc.UpsertUserLimit(ctx, uuid.New(), APITypeAddressGenerator, 0, false)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.UpsertUserLimit(ctx, uuid.New(), APITypeAddressGenerator, -5, false)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	// The limit value is ignored for unlimited overrides
	_, err = svc.UpsertUserLimit(ctx, uuid.New(), APITypeAddressGenerator, 0, true)
	assert.NoError(t, err)
}

func TestDeleteUserLimit_RestoresDefault(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.AddressLimit = 100
	svc := newTestService(t, repo, cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpsertUserLimit(ctx, userID, APITypeAddressGenerator, 5, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUserLimit(ctx, userID, APITypeAddressGenerator))

	eff, err := svc.EffectiveLimit(ctx, userID, APITypeAddressGenerator)
	require.NoError(t, err)
	assert.Equal(t, 100, eff.DailyLimit)
}

func TestDeleteUserLimit_NotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), testConfig(), nil)

	err := svc.DeleteUserLimit(context.Background(), uuid.New(), APITypeEmail2Name)
	assert.ErrorIs(t, err, ErrOverrideNotFound)
}

func TestUserStatus_CoversAllTypes(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.AddressLimit = 10
	svc := newTestService(t, repo, cfg, nil)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CheckAndConsume(ctx, userID, APITypeAddressGenerator)
		require.NoError(t, err)
	}

	statuses, err := svc.UserStatus(ctx, userID)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byType := make(map[APIType]UsageStatus, len(statuses))
	for _, st := range statuses {
		byType[st.APIType] = st
	}

	assert.Equal(t, 3, byType[APITypeAddressGenerator].DailyCount)
	assert.Equal(t, 7, byType[APITypeAddressGenerator].Remaining)
	assert.Equal(t, 0, byType[APITypeUserAgent].DailyCount)
	assert.Equal(t, 200, byType[APITypeUserAgent].Remaining)
	assert.Equal(t, 0, byType[APITypeEmail2Name].DailyCount)
}
