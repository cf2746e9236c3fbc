package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 15*time.Minute), mr
}

func TestRedisCache_ProductRoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	product := &models.Product{ID: 10, RestaurantID: 1, Name: "Croquetas", Price: decimal.RequireFromString("6.00"), Availability: true}
	require.NoError(t, cache.SetProduct(ctx, product))
	assert.True(t, mr.Exists(productKey(10)))

	cached, err := cache.GetProduct(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.RestaurantID)
	assert.True(t, cached.Price.Equal(product.Price))
	assert.True(t, cached.Availability)
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.GetRestaurant(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = cache.GetProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(restaurantKey(3), `{"id":3,`))

	_, err := cache.GetRestaurant(context.Background(), 3)
	require.ErrorContains(t, err, "unmarshal catalog:restaurant:3 failed")
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.SetRestaurant(context.Background(), &models.Restaurant{ID: 1, Name: "Casa Félix"}))

	ttl := mr.TTL(restaurantKey(1))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestRedisCache_Invalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetRestaurant(ctx, &models.Restaurant{ID: 1}))
	require.NoError(t, cache.SetProduct(ctx, &models.Product{ID: 2}))
	require.NoError(t, cache.SetProduct(ctx, &models.Product{ID: 3}))

	require.NoError(t, cache.Invalidate(ctx, []int64{1}, []int64{2}))
	assert.False(t, mr.Exists(restaurantKey(1)))
	assert.False(t, mr.Exists(productKey(2)))
	assert.True(t, mr.Exists(productKey(3)))

	assert.NoError(t, cache.Invalidate(ctx, nil, nil))
}
