package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/repository"
	"github.com/Lixing-Zhang/deliverus-backend/internal/ordering"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	repository.CatalogRepository
	productReads atomic.Int32
}

func (r *countingRepo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	r.productReads.Add(1)
	return r.CatalogRepository.GetProduct(ctx, id)
}

type brokenCache struct {
	calls atomic.Int32
}

func (b *brokenCache) fail() error {
	b.calls.Add(1)
	return errors.New("connection refused")
}

func (b *brokenCache) GetRestaurant(context.Context, int64) (*models.Restaurant, error) {
	return nil, b.fail()
}
func (b *brokenCache) SetRestaurant(context.Context, *models.Restaurant) error { return b.fail() }
func (b *brokenCache) GetProduct(context.Context, int64) (*models.Product, error) {
	return nil, b.fail()
}
func (b *brokenCache) SetProduct(context.Context, *models.Product) error { return b.fail() }
func (b *brokenCache) Invalidate(context.Context, []int64, []int64) error {
	return b.fail()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	repo := &countingRepo{CatalogRepository: repository.NewSeededCatalogRepository()}
	catalog := NewCachedCatalog(repo, redisCache, discardLogger())
	ctx := context.Background()

	first, err := catalog.GetProduct(ctx, 3)
	require.NoError(t, err)
	second, err := catalog.GetProduct(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, int32(1), repo.productReads.Load())

	restaurant, err := catalog.GetRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), restaurant.ID)
}

func TestCachedCatalog_NotFoundIsNotCached(t *testing.T) {
	redisCache, mr := setupTestRedis(t)
	catalog := NewCachedCatalog(repository.NewSeededCatalogRepository(), redisCache, discardLogger())

	_, err := catalog.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, ordering.ErrNotFound)
	assert.False(t, mr.Exists(productKey(404)))
}

func TestCachedCatalog_SaveInvalidates(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	catalog := NewCachedCatalog(repository.NewSeededCatalogRepository(), redisCache, discardLogger())
	ctx := context.Background()

	product, err := catalog.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, product.Availability)

	product.Availability = false
	require.NoError(t, catalog.SaveProduct(ctx, *product))

	fresh, err := catalog.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fresh.Availability)
}

func TestCachedCatalog_BrokenCacheFallsBack(t *testing.T) {
	broken := &brokenCache{}
	catalog := NewCachedCatalog(repository.NewSeededCatalogRepository(), broken, discardLogger())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		product, err := catalog.GetProduct(ctx, 6)
		require.NoError(t, err)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("1.00")))
	}

	// the breaker opens after five consecutive failures and stops calling the cache
	assert.Equal(t, int32(5), broken.calls.Load())
}

// slowRepo holds product reads until release is closed
type slowRepo struct {
	repository.CatalogRepository
	entered     chan struct{}
	enteredOnce sync.Once
	release     chan struct{}
}

func (r *slowRepo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	r.enteredOnce.Do(func() { close(r.entered) })
	select {
	case <-r.release:
		return r.CatalogRepository.GetProduct(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedCatalog_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	repo := &slowRepo{
		CatalogRepository: repository.NewSeededCatalogRepository(),
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	catalog := NewCachedCatalog(repo, redisCache, discardLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := catalog.GetProduct(ctxA, 1)
		errA <- err
	}()
	<-repo.entered

	type result struct {
		product *models.Product
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		product, err := catalog.GetProduct(context.Background(), 1)
		resB <- result{product, err}
	}()
	// let the second caller join the flight
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(repo.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, int64(1), b.product.ID)
}

type cancelledCache struct {
	brokenCache
}

func (c *cancelledCache) GetProduct(context.Context, int64) (*models.Product, error) {
	c.calls.Add(1)
	return nil, context.Canceled
}

func TestCachedCatalog_ContextErrorsDoNotTripBreaker(t *testing.T) {
	cache := &cancelledCache{}
	catalog := NewCachedCatalog(repository.NewSeededCatalogRepository(), cache, discardLogger())

	for i := 0; i < 10; i++ {
		catalog.breaker.Execute(func() (any, error) { //nolint:errcheck
			return cache.GetProduct(context.Background(), 1)
		})
	}

	assert.Equal(t, gobreaker.StateClosed, catalog.breaker.State())
	assert.Equal(t, int32(10), cache.calls.Load())
}
