package redis

import (
	"context"
	"testing"
	"time"

	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableCache(t *testing.T) *NarrativeCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewNarrativeCache(client, time.Minute)
}

func TestNarrativeCache_UnreachableServerReturnsErrors(t *testing.T) {
	cache := unreachableCache(t)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, "abc")
	require.Error(t, err)
	assert.False(t, hit)

	err = cache.Set(ctx, "abc", domain.AIAnalysis{Summary: "s", RiskLevel: domain.RiskLow})
	assert.Error(t, err)

	assert.Error(t, cache.Ping(ctx))
}

func TestNewClient_UsesConfig(t *testing.T) {
	client := NewClient(config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 4})
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
}
