package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

const cacheKeyPrefix = "uf:rate:"

// RedisCache caches per-day values of the wrapped provider
type RedisCache struct {
	client redis.Cmdable
	next   Provider
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, next Provider, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, next: next, ttl: ttl}
}

func cacheKey(day time.Time) string {
	return cacheKeyPrefix + day.Format(utils.DateLayout)
}

func (c *RedisCache) Rate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := utils.TruncateToDay(date)

	if value, ok := c.get(ctx, day); ok {
		return value, nil
	}

	value, err := c.next.Rate(ctx, day)
	if err != nil {
		return decimal.Zero, err
	}
	c.set(ctx, day, value)
	return value, nil
}

// LatestBefore is never answered from cache since the answer moves as new days publish
func (c *RedisCache) LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error) {
	value, day, err := c.next.LatestBefore(ctx, date)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	c.set(ctx, day, value)
	return value, day, nil
}

func (c *RedisCache) get(ctx context.Context, day time.Time) (decimal.Decimal, bool) {
	raw, err := c.client.Get(ctx, cacheKey(day)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("UF cache read failed", "date", day.Format(utils.DateLayout), "error", err)
		}
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Warn("UF cache holds invalid value", "key", cacheKey(day), "value", raw)
		return decimal.Zero, false
	}
	return value, true
}

func (c *RedisCache) set(ctx context.Context, day time.Time, value decimal.Decimal) {
	if err := c.client.Set(ctx, cacheKey(day), value.String(), c.ttl).Err(); err != nil {
		logger.Warn("UF cache write failed", "date", day.Format(utils.DateLayout), "error", fmt.Errorf("set: %w", err))
	}
}
