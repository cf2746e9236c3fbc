package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.get(ctx, restaurantKey(id), &restaurant); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *RedisCache) SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	return r.set(ctx, restaurantKey(restaurant.ID), restaurant)
}

func (r *RedisCache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.get(ctx, productKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *RedisCache) SetProduct(ctx context.Context, product *models.Product) error {
	return r.set(ctx, productKey(product.ID), product)
}

func (r *RedisCache) Invalidate(ctx context.Context, restaurantIDs, productIDs []int64) error {
	keys := make([]string, 0, len(restaurantIDs)+len(productIDs))
	for _, id := range restaurantIDs {
		keys = append(keys, restaurantKey(id))
	}
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	// jitter spreads expirations of entries cached together
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/3) + 1))
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func restaurantKey(id int64) string {
	return fmt.Sprintf("catalog:restaurant:%d", id)
}

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}
