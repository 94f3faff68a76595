package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fraud:narrative:"

// NewClient creates a Redis client from configuration
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NarrativeCache stores narrative results keyed by a digest of the request
type NarrativeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNarrativeCache creates a cache; entries expire after ttl
func NewNarrativeCache(client *redis.Client, ttl time.Duration) *NarrativeCache {
	return &NarrativeCache{client: client, ttl: ttl}
}

// Get returns a cached analysis. A miss is (zero, false, nil).
func (c *NarrativeCache) Get(ctx context.Context, key string) (domain.AIAnalysis, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AIAnalysis{}, false, nil
		}
		return domain.AIAnalysis{}, false, fmt.Errorf("failed to read narrative cache: %w", err)
	}

	var analysis domain.AIAnalysis
	if err := json.Unmarshal(val, &analysis); err != nil {
		return domain.AIAnalysis{}, false, fmt.Errorf("failed to decode cached narrative: %w", err)
	}
	return analysis, true, nil
}

// Set stores an analysis under key
func (c *NarrativeCache) Set(ctx context.Context, key string, analysis domain.AIAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode narrative: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write narrative cache: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (c *NarrativeCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (c *NarrativeCache) Close() error {
	return c.client.Close()
}
