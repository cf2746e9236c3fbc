package cache

import (
	"context"
	"errors"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
)

// CatalogCache stores restaurants and products for fast order validation
type CatalogCache interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	Invalidate(ctx context.Context, restaurantIDs, productIDs []int64) error
}

var ErrCacheMiss = errors.New("cache miss")
