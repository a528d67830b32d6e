package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booktable/pkg/civil"
	"booktable/pkg/logger"
	"booktable/pkg/model"

	"github.com/redis/go-redis/v9"
)

// cachedAvailabilityRepository serves GetDay from Redis. Every write bumps a
// per-day version that is part of the cache key, so a read that loaded Mongo
// before a concurrent write can only store its snapshot under the old version,
// which no later read looks up. Cache failures are logged and the call falls
// through to the wrapped repository.
type cachedAvailabilityRepository struct {
	AvailabilityRepository
	rdb        *redis.Client
	ttl        time.Duration
	versionTTL time.Duration
	log        *logger.Logger
}

// NewCachedAvailabilityRepository returns next unchanged when rdb is nil.
func NewCachedAvailabilityRepository(next AvailabilityRepository, rdb *redis.Client, ttl time.Duration, log *logger.Logger) AvailabilityRepository {
	if rdb == nil {
		return next
	}
	return &cachedAvailabilityRepository{
		AvailabilityRepository: next,
		rdb:                    rdb,
		ttl:                    ttl,
		versionTTL:             VersionTTL(ttl),
		log:                    log.Component("availability_cache"),
	}
}

// VersionTTL outlives every entry stored under the version it guards, so a
// version never resets while an older snapshot is still cached.
func VersionTTL(ttl time.Duration) time.Duration {
	return max(24*time.Hour, 2*ttl)
}

func DayVersionKey(restaurantID string, date civil.Date) string {
	return fmt.Sprintf("availability:version:%s:%s", restaurantID, date.String())
}

func DayCacheKey(restaurantID string, date civil.Date, version int64) string {
	return fmt.Sprintf("availability:%s:%s:v%d", restaurantID, date.String(), version)
}

func (c *cachedAvailabilityRepository) GetDay(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
	version, err := c.rdb.Get(ctx, DayVersionKey(restaurantID, date)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		version = 0
	case err != nil:
		c.log.Warn("Cache version read failed", "restaurant_id", restaurantID, "date", date, "error", err)
		return c.AvailabilityRepository.GetDay(ctx, restaurantID, date)
	}
	key := DayCacheKey(restaurantID, date, version)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var day model.AvailabilityDay
		if jsonErr := json.Unmarshal([]byte(raw), &day); jsonErr == nil {
			return &day, nil
		}
		c.log.Warn("Dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Cache read failed", "key", key, "error", err)
	}

	day, err := c.AvailabilityRepository.GetDay(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(day)
	if err != nil {
		return day, nil
	}
	if err := c.rdb.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return day, nil
}

func (c *cachedAvailabilityRepository) RemoveSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	err := c.AvailabilityRepository.RemoveSlot(ctx, ref, t)
	if err == nil {
		c.invalidate(ctx, ref.RestaurantID, ref.Date)
	}
	return err
}

func (c *cachedAvailabilityRepository) RestoreSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	err := c.AvailabilityRepository.RestoreSlot(ctx, ref, t)
	if err == nil {
		c.invalidate(ctx, ref.RestaurantID, ref.Date)
	}
	return err
}

func (c *cachedAvailabilityRepository) MergeDays(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error) {
	written, err := c.AvailabilityRepository.MergeDays(ctx, restaurantID, from, to, merge)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, restaurantID, written...)
	return written, nil
}

func (c *cachedAvailabilityRepository) invalidate(ctx context.Context, restaurantID string, dates ...civil.Date) {
	for _, d := range dates {
		key := DayVersionKey(restaurantID, d)
		if err := c.rdb.Incr(ctx, key).Err(); err != nil {
			c.log.Warn("Cache invalidation failed", "restaurant_id", restaurantID, "date", d, "error", err)
			continue
		}
		if err := c.rdb.Expire(ctx, key, c.versionTTL).Err(); err != nil {
			c.log.Warn("Cache version expiry failed", "key", key, "error", err)
		}
	}
}
