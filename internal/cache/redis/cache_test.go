package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GameCatalog/internal/domain"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*AnalyticsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewAnalyticsCache(client, ttl), mr
}

func TestAnalyticsCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t, time.Minute)

	var got domain.GenreStats
	ok, err := cache.Get(context.Background(), "catalog:analytics:general:", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyticsCache_RoundTripKeepsOrder(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	stats := domain.GenreStats{{Genre: "RPG", Value: 30}, {Genre: "FPS", Value: 5}}
	require.NoError(t, cache.Set(ctx, "catalog:analytics:top-genres-by-sales:2", stats))

	raw, err := mr.Get("catalog:analytics:top-genres-by-sales:2")
	require.NoError(t, err)
	assert.Equal(t, `{"RPG":30,"FPS":5}`, raw)

	var got domain.GenreStats
	ok, err := cache.Get(ctx, "catalog:analytics:top-genres-by-sales:2", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stats, got)
}

func TestAnalyticsCache_PointerValue(t *testing.T) {
	cache, _ := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	m := &domain.CatalogMetrics{TotalGames: 3, TotalSales: 35, AverageRating: 3, TotalGenres: 2}
	require.NoError(t, cache.Set(ctx, "k", m))

	var got *domain.CatalogMetrics
	ok, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m, got)
}

func TestAnalyticsCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", 1))
	assert.Equal(t, 30*time.Second, mr.TTL("k"))

	mr.FastForward(31 * time.Second)

	var got int
	ok, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyticsCache_DefaultTTL(t *testing.T) {
	cache, mr := setupTestRedis(t, 0)

	require.NoError(t, cache.Set(context.Background(), "k", "v"))
	assert.Equal(t, DefaultTTL, mr.TTL("k"))
}

func TestAnalyticsCache_CorruptValue(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	require.NoError(t, mr.Set("k", "not json"))

	var got domain.GenreStats
	ok, err := cache.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestAnalyticsCache_ServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	mr.Close()

	var got int
	_, err := cache.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "k", 1))
}

func TestAnalyticsCache_DeletePrefix(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < scanCount*2+5; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("catalog:analytics:top-genres:%d", i), i))
	}
	require.NoError(t, mr.Set("session:1", "keep"))

	require.NoError(t, cache.DeletePrefix(ctx, "catalog:analytics:"))

	assert.Equal(t, []string{"session:1"}, mr.Keys())
}

func TestAnalyticsCache_DeletePrefixServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	mr.Close()

	assert.Error(t, cache.DeletePrefix(context.Background(), "catalog:analytics:"))
}
