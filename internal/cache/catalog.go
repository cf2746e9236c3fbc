package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/repository"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// CachedCatalog is a read-through cache in front of a catalog repository.
// Cache failures never fail a lookup: after repeated errors the breaker opens
// and lookups go straight to the repository until it half-opens again.
type CachedCatalog struct {
	repository.CatalogRepository
	cache   CatalogCache
	log     *slog.Logger
	sfg     singleflight.Group
	breaker *gobreaker.CircuitBreaker[any]
}

func NewCachedCatalog(repo repository.CatalogRepository, cache CatalogCache, log *slog.Logger) *CachedCatalog {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "catalog-cache",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a miss or an abandoned request says nothing about cache health
			return err == nil || errors.Is(err, ErrCacheMiss) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &CachedCatalog{
		CatalogRepository: repo,
		cache:             cache,
		log:               log,
		breaker:           breaker,
	}
}

// lookupTimeout bounds a shared flight, which no longer follows any caller's context
const lookupTimeout = 5 * time.Second

func (c *CachedCatalog) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	v, err := c.flight(ctx, "restaurant:"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		cached, err := c.breaker.Execute(func() (any, error) {
			return c.cache.GetRestaurant(ctx, id)
		})
		if err == nil {
			return cached, nil
		}
		c.logCacheError(err, "restaurant", id)

		restaurant, err := c.CatalogRepository.GetRestaurant(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(func() error { return c.cache.SetRestaurant(ctx, restaurant) }, "restaurant", id)
		return restaurant, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Restaurant), nil
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	v, err := c.flight(ctx, "product:"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		cached, err := c.breaker.Execute(func() (any, error) {
			return c.cache.GetProduct(ctx, id)
		})
		if err == nil {
			return cached, nil
		}
		c.logCacheError(err, "product", id)

		product, err := c.CatalogRepository.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(func() error { return c.cache.SetProduct(ctx, product) }, "product", id)
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

// flight runs fn once per key for all concurrent callers. The shared call is
// detached from the caller that started it, so one cancelled request cannot
// fail the others; each caller still stops waiting when its own ctx ends.
func (c *CachedCatalog) flight(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.sfg.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// SaveRestaurant writes through to the repository and drops the cached entry
func (c *CachedCatalog) SaveRestaurant(ctx context.Context, restaurant models.Restaurant) error {
	if err := c.CatalogRepository.SaveRestaurant(ctx, restaurant); err != nil {
		return err
	}
	c.store(func() error { return c.cache.Invalidate(ctx, []int64{restaurant.ID}, nil) }, "restaurant", restaurant.ID)
	return nil
}

// SaveProduct writes through to the repository and drops the cached entry
func (c *CachedCatalog) SaveProduct(ctx context.Context, product models.Product) error {
	if err := c.CatalogRepository.SaveProduct(ctx, product); err != nil {
		return err
	}
	c.store(func() error { return c.cache.Invalidate(ctx, nil, []int64{product.ID}) }, "product", product.ID)
	return nil
}

func (c *CachedCatalog) store(fn func() error, kind string, id int64) {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		c.log.Warn("cache write failed", "kind", kind, "id", id, "error", err)
	}
}

func (c *CachedCatalog) logCacheError(err error, kind string, id int64) {
	if errors.Is(err, ErrCacheMiss) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return
	}
	c.log.Warn("cache read failed", "kind", kind, "id", id, "error", err)
}
