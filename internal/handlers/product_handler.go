package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/deliverus-backend/internal/service"
)

// CatalogHandler handles restaurant and product HTTP requests
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// GetRestaurant handles GET /api/restaurants/{restaurantId}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Restaurant not found
func (h *CatalogHandler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "restaurantId", h.logger)
	if !ok {
		return
	}

	restaurant, err := h.service.GetRestaurant(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, restaurant, h.logger)
}

// ListRestaurantProducts handles GET /api/restaurants/{restaurantId}/products
func (h *CatalogHandler) ListRestaurantProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "restaurantId", h.logger)
	if !ok {
		return
	}

	// 404 for unknown restaurants instead of an empty menu
	if _, err := h.service.GetRestaurant(r.Context(), id); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	products, err := h.service.ListRestaurantProducts(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, products, h.logger)
}

// GetProduct handles GET /api/products/{productId}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "productId", h.logger)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, product, h.logger)
}
