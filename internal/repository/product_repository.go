package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/ordering"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound    = fmt.Errorf("product %w", ordering.ErrNotFound)
	ErrRestaurantNotFound = fmt.Errorf("restaurant %w", ordering.ErrNotFound)
)

// CatalogRepository defines the interface for restaurant and product data access
type CatalogRepository interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProductsByRestaurant(ctx context.Context, restaurantID int64) ([]models.Product, error)
	SaveRestaurant(ctx context.Context, restaurant models.Restaurant) error
	SaveProduct(ctx context.Context, product models.Product) error
}

// InMemoryCatalogRepository implements CatalogRepository with in-memory storage
type InMemoryCatalogRepository struct {
	mu          sync.RWMutex
	restaurants map[int64]models.Restaurant
	products    map[int64]models.Product
}

// NewInMemoryCatalogRepository creates an empty in-memory catalog
func NewInMemoryCatalogRepository() *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		restaurants: make(map[int64]models.Restaurant),
		products:    make(map[int64]models.Product),
	}
}

// NewSeededCatalogRepository creates an in-memory catalog with demo data
func NewSeededCatalogRepository() *InMemoryCatalogRepository {
	r := NewInMemoryCatalogRepository()

	for _, restaurant := range []models.Restaurant{
		{ID: 1, Name: "Casa Félix", ShippingCosts: decimal.RequireFromString("2.50"), OwnerID: 2},
		{ID: 2, Name: "100 Montaditos", ShippingCosts: decimal.RequireFromString("1.50"), OwnerID: 3},
	} {
		r.restaurants[restaurant.ID] = restaurant
	}

	for _, product := range []models.Product{
		{ID: 1, RestaurantID: 1, Name: "Ensaladilla", Price: decimal.RequireFromString("2.50"), Availability: true},
		{ID: 2, RestaurantID: 1, Name: "Olivas rellenas", Price: decimal.RequireFromString("1.75"), Availability: true},
		{ID: 3, RestaurantID: 1, Name: "Croquetas de jamón", Price: decimal.RequireFromString("6.00"), Availability: true},
		{ID: 4, RestaurantID: 1, Name: "Gazpacho", Price: decimal.RequireFromString("3.20"), Availability: false},
		{ID: 5, RestaurantID: 1, Name: "Solomillo al whisky", Price: decimal.RequireFromString("12.90"), Availability: true},
		{ID: 6, RestaurantID: 2, Name: "Montadito de lomo", Price: decimal.RequireFromString("1.00"), Availability: true},
		{ID: 7, RestaurantID: 2, Name: "Patatas bravas", Price: decimal.RequireFromString("2.50"), Availability: true},
		{ID: 8, RestaurantID: 2, Name: "Tercio de cerveza", Price: decimal.RequireFromString("1.50"), Availability: true},
	} {
		r.products[product.ID] = product
	}

	return r
}

// GetRestaurant returns a restaurant by its ID
func (r *InMemoryCatalogRepository) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	restaurant, exists := r.restaurants[id]
	if !exists {
		return nil, ErrRestaurantNotFound
	}
	return &restaurant, nil
}

// GetProduct returns a product by its ID
func (r *InMemoryCatalogRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// ListProductsByRestaurant returns the products of a restaurant ordered by ID
func (r *InMemoryCatalogRepository) ListProductsByRestaurant(ctx context.Context, restaurantID int64) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.restaurants[restaurantID]; !exists {
		return nil, ErrRestaurantNotFound
	}

	products := make([]models.Product, 0)
	for _, product := range r.products {
		if product.RestaurantID == restaurantID {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// SaveRestaurant inserts or replaces a restaurant
func (r *InMemoryCatalogRepository) SaveRestaurant(ctx context.Context, restaurant models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.restaurants[restaurant.ID] = restaurant
	return nil
}

// SaveProduct inserts or replaces a product
func (r *InMemoryCatalogRepository) SaveProduct(ctx context.Context, product models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = product
	return nil
}
