// internal/store/usage_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
)

// Usage counters outlive the month they belong to by a few days so a period
// that just closed can still be inspected.
const usageKeyTTL = 35 * 24 * time.Hour

const planLimitQuery = `SELECT interview_limit FROM account_plans WHERE account_id = $1`

// UsageStore tracks per-account interview usage in Redis keyed by billing
// period, with plan limits read from Postgres behind a Redis cache.
type UsageStore struct {
	redis    *redis.Client
	db       *sql.DB
	cacheTTL time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func NewUsageStore(rdb *redis.Client, db *sql.DB, cacheTTL time.Duration, log logger.Logger) *UsageStore {
	return &UsageStore{
		redis:    rdb,
		db:       db,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "usage-store"}),
		now:      time.Now,
	}
}

// PeriodKey is the Redis key holding an account's usage counter for the
// calendar month containing t. A new month starts a fresh counter, which is
// how quota resets happen without any reset job.
func PeriodKey(accountID string, t time.Time) string {
	return fmt.Sprintf("usage:%s:%s", accountID, t.UTC().Format("2006-01"))
}

func planCacheKey(accountID string) string {
	return fmt.Sprintf("plan:%s:limit", accountID)
}

// Usage returns the current period's usage and the account's plan limit.
func (s *UsageStore) Usage(ctx context.Context, accountID string) (models.UsageRecord, error) {
	period := s.now().UTC().Format("2006-01")

	usage, err := s.redis.Get(ctx, PeriodKey(accountID, s.now())).Int()
	if err == redis.Nil {
		usage = 0
	} else if err != nil {
		return models.UsageRecord{}, fmt.Errorf("read usage counter: %w", err)
	}

	limit, err := s.planLimit(ctx, accountID)
	if err != nil {
		return models.UsageRecord{}, err
	}

	return models.UsageRecord{
		AccountID:    accountID,
		Period:       period,
		CurrentUsage: usage,
		PlanLimit:    limit,
	}, nil
}

// Increment bumps the current period's counter by one and returns the new
// value.
func (s *UsageStore) Increment(ctx context.Context, accountID string) (int, error) {
	key := PeriodKey(accountID, s.now())

	usage, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}
	if usage == 1 {
		if err := s.redis.Expire(ctx, key, usageKeyTTL).Err(); err != nil {
			s.logger.Warn("failed to set usage key TTL", map[string]interface{}{
				"accountId": accountID,
				"error":     err.Error(),
			})
		}
	}

	return int(usage), nil
}

// planLimit reads the account's plan limit, serving from the Redis cache when
// possible and falling back to Postgres on a miss.
func (s *UsageStore) planLimit(ctx context.Context, accountID string) (models.PlanLimit, error) {
	cached, err := s.redis.Get(ctx, planCacheKey(accountID)).Result()
	if err == nil {
		limit, parseErr := strconv.Atoi(cached)
		if parseErr == nil {
			return models.PlanLimit(limit), nil
		}
		// A corrupt cache entry falls through to the database.
	} else if err != redis.Nil {
		return 0, fmt.Errorf("read plan cache: %w", err)
	}

	var limit int
	if err := s.db.QueryRowContext(ctx, planLimitQuery, accountID).Scan(&limit); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("no plan configured for account %s", accountID)
		}
		return 0, fmt.Errorf("read plan limit: %w", err)
	}

	if err := s.redis.Set(ctx, planCacheKey(accountID), strconv.Itoa(limit), s.cacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache plan limit", map[string]interface{}{
			"accountId": accountID,
			"error":     err.Error(),
		})
	}

	return models.PlanLimit(limit), nil
}
