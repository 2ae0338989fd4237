package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository abstracts the quota persistence layer. The increment path must
// be atomic per (user, api_type, day): two concurrent calls may never both
// be admitted when only one increment fits under the ceiling.
type Repository interface {
	// IncrementIfAllowed creates today's usage row on first use and
	// increments it only while the count is below limit (or unconditionally
	// when unlimited). It returns the row's count after the attempt and
	// whether the call was admitted.
	IncrementIfAllowed(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time, limit int, unlimited bool) (int, bool, error)
	GetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) (*UsageRecord, error)
	ListUserUsage(ctx context.Context, userID uuid.UUID, day time.Time) ([]*UsageRecord, error)
	ResetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) error
	GetUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (*UserLimit, error)
	UpsertUserLimit(ctx context.Context, limit *UserLimit) error
	DeleteUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (bool, error)
	ListUsageByDate(ctx context.Context, apiType APIType, day time.Time, defaultLimit, limit, offset int) ([]*UsageListEntry, error)
	CountUsageByDate(ctx context.Context, apiType APIType, day time.Time) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) IncrementIfAllowed(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time, limit int, unlimited bool) (int, bool, error) {
	// Single upsert-and-conditional-increment statement. The conditional
	// UPDATE only fires while the existing count is under the ceiling, so
	// concurrent callers serialize on the row and cannot over-admit.
	query := `
		INSERT INTO api_daily_usage (user_id, api_type, usage_date, daily_count, last_used_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (user_id, api_type, usage_date) DO UPDATE
		SET daily_count = api_daily_usage.daily_count + 1,
		    last_used_at = NOW()
		WHERE $4::boolean OR api_daily_usage.daily_count < $5
		RETURNING daily_count`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, apiType, day, unlimited, limit).Scan(&count)
	if err == nil {
		return count, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("incrementing daily usage: %w", err)
	}

	// Denied: the row exists at or above the ceiling. Read it back for
	// reporting only, never incrementing.
	rec, err := r.GetUsage(ctx, userID, apiType, day)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, fmt.Errorf("usage row vanished for user %s api %s", userID, apiType)
	}
	return rec.DailyCount, false, nil
}

func (r *postgresRepository) GetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) (*UsageRecord, error) {
	query := `
		SELECT user_id, api_type, usage_date, daily_count, last_used_at
		FROM api_daily_usage
		WHERE user_id = $1 AND api_type = $2 AND usage_date = $3`

	rec := &UsageRecord{}
	err := r.pool.QueryRow(ctx, query, userID, apiType, day).Scan(
		&rec.UserID, &rec.APIType, &rec.UsageDate, &rec.DailyCount, &rec.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying daily usage: %w", err)
	}
	return rec, nil
}

func (r *postgresRepository) ListUserUsage(ctx context.Context, userID uuid.UUID, day time.Time) ([]*UsageRecord, error) {
	query := `
		SELECT user_id, api_type, usage_date, daily_count, last_used_at
		FROM api_daily_usage
		WHERE user_id = $1 AND usage_date = $2
		ORDER BY api_type`

	rows, err := r.pool.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("listing user usage: %w", err)
	}
	defer rows.Close()

	var records []*UsageRecord
	for rows.Next() {
		rec := &UsageRecord{}
		if err := rows.Scan(&rec.UserID, &rec.APIType, &rec.UsageDate, &rec.DailyCount, &rec.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *postgresRepository) ResetUsage(ctx context.Context, userID uuid.UUID, apiType APIType, day time.Time) error {
	// Zeroing a missing row is a no-op: the count is already implicitly 0.
	query := `
		UPDATE api_daily_usage
		SET daily_count = 0
		WHERE user_id = $1 AND api_type = $2 AND usage_date = $3`

	_, err := r.pool.Exec(ctx, query, userID, apiType, day)
	if err != nil {
		return fmt.Errorf("resetting daily usage: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (*UserLimit, error) {
	query := `
		SELECT user_id, api_type, daily_limit, is_unlimited, updated_at
		FROM api_user_limits
		WHERE user_id = $1 AND api_type = $2`

	limit := &UserLimit{}
	err := r.pool.QueryRow(ctx, query, userID, apiType).Scan(
		&limit.UserID, &limit.APIType, &limit.DailyLimit, &limit.IsUnlimited, &limit.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user limit: %w", err)
	}
	return limit, nil
}

func (r *postgresRepository) UpsertUserLimit(ctx context.Context, limit *UserLimit) error {
	query := `
		INSERT INTO api_user_limits (user_id, api_type, daily_limit, is_unlimited, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, api_type) DO UPDATE
		SET daily_limit = EXCLUDED.daily_limit,
		    is_unlimited = EXCLUDED.is_unlimited,
		    updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, limit.UserID, limit.APIType, limit.DailyLimit, limit.IsUnlimited)
	if err != nil {
		return fmt.Errorf("upserting user limit: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteUserLimit(ctx context.Context, userID uuid.UUID, apiType APIType) (bool, error) {
	query := `DELETE FROM api_user_limits WHERE user_id = $1 AND api_type = $2`

	tag, err := r.pool.Exec(ctx, query, userID, apiType)
	if err != nil {
		return false, fmt.Errorf("deleting user limit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) ListUsageByDate(ctx context.Context, apiType APIType, day time.Time, defaultLimit, limit, offset int) ([]*UsageListEntry, error) {
	// The effective limit is derived at read time from override-or-default,
	// never from values frozen into the usage row.
	query := `
		SELECT d.user_id, COALESCE(u.email, ''), d.api_type, d.daily_count,
		       COALESCE(l.daily_limit, $4), COALESCE(l.is_unlimited, FALSE), d.last_used_at
		FROM api_daily_usage d
		LEFT JOIN api_user_limits l ON l.user_id = d.user_id AND l.api_type = d.api_type
		LEFT JOIN users u ON u.id = d.user_id
		WHERE d.api_type = $1 AND d.usage_date = $2
		ORDER BY d.daily_count DESC, d.user_id
		LIMIT $3 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, apiType, day, limit, defaultLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing usage by date: %w", err)
	}
	defer rows.Close()

	var entries []*UsageListEntry
	for rows.Next() {
		e := &UsageListEntry{}
		if err := rows.Scan(&e.UserID, &e.Email, &e.APIType, &e.DailyCount,
			&e.DailyLimit, &e.IsUnlimited, &e.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning usage list row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresRepository) CountUsageByDate(ctx context.Context, apiType APIType, day time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM api_daily_usage WHERE api_type = $1 AND usage_date = $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, apiType, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting usage rows: %w", err)
	}
	return count, nil
}
