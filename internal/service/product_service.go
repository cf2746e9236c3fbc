package service

import (
	"context"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/repository"
)

// CatalogService handles read access to restaurants and products
type CatalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// GetRestaurant returns a restaurant by ID
func (s *CatalogService) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	return s.repo.GetRestaurant(ctx, id)
}

// GetProduct returns a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListRestaurantProducts returns the menu of a restaurant
func (s *CatalogService) ListRestaurantProducts(ctx context.Context, restaurantID int64) ([]models.Product, error) {
	return s.repo.ListProductsByRestaurant(ctx, restaurantID)
}
