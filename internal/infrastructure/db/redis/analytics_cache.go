package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
)

// AnalyticsCache stores JSON-encoded analytics reports with a TTL.
// Key format: <prefix><report>[:<limit>]
type AnalyticsCache struct {
	client *redis.Client
}

func NewAnalyticsCache(client *redis.Client) *AnalyticsCache {
	return &AnalyticsCache{client: client}
}

// Get decodes the cached value for key into dst. A missing key is not an error.
func (c *AnalyticsCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.AnalyticsCacheTotal.WithLabelValues("miss").Inc()
			return false, nil
		}
		metrics.AnalyticsCacheTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("analytics cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.AnalyticsCacheTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("analytics cache decode %s: %w", key, err)
	}
	metrics.AnalyticsCacheTotal.WithLabelValues("hit").Inc()
	return true, nil
}

func (c *AnalyticsCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("analytics cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("analytics cache set: %w", err)
	}
	return nil
}
