package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"shop-orders/internal/domain"
)

// StatsCache stores yearly revenue reports. A miss is (nil, nil).
type StatsCache interface {
	GetYearlyRevenue(ctx context.Context, year int) (*domain.YearlyRevenue, error)
	SetYearlyRevenue(ctx context.Context, report *domain.YearlyRevenue) error
	InvalidateYear(ctx context.Context, year int) error
}

type redisStatsCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewRedisStatsCache(client *redis.Client, namespace string, ttl time.Duration) StatsCache {
	return &redisStatsCache{client: client, namespace: namespace, ttl: ttl}
}

func (c *redisStatsCache) key(year int) string {
	return fmt.Sprintf("%s:revenue:%d", c.namespace, year)
}

func (c *redisStatsCache) GetYearlyRevenue(ctx context.Context, year int) (*domain.YearlyRevenue, error) {
	raw, err := c.client.Get(ctx, c.key(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	var report domain.YearlyRevenue
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, errors.Wrap(err, "decode cached revenue")
	}
	return &report, nil
}

func (c *redisStatsCache) SetYearlyRevenue(ctx context.Context, report *domain.YearlyRevenue) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encode revenue")
	}
	return errors.Wrap(c.client.Set(ctx, c.key(report.Year), raw, c.ttl).Err(), "redis set")
}

func (c *redisStatsCache) InvalidateYear(ctx context.Context, year int) error {
	return errors.Wrap(c.client.Del(ctx, c.key(year)).Err(), "redis del")
}

type noopStatsCache struct{}

// NewNoop is used when REDIS_ADDR is empty.
func NewNoop() StatsCache {
	return noopStatsCache{}
}

func (noopStatsCache) GetYearlyRevenue(context.Context, int) (*domain.YearlyRevenue, error) {
	return nil, nil
}

func (noopStatsCache) SetYearlyRevenue(context.Context, *domain.YearlyRevenue) error { return nil }

func (noopStatsCache) InvalidateYear(context.Context, int) error { return nil }
