package ordering

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	restaurants    map[int64]models.Restaurant
	products       map[int64]models.Product
	productLookups int
	failProduct    error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		restaurants: map[int64]models.Restaurant{
			1: {ID: 1, Name: "Casa Felix", ShippingCosts: decimal.RequireFromString("2.50"), OwnerID: 100},
			2: {ID: 2, Name: "100 Montaditos", ShippingCosts: decimal.Zero, OwnerID: 200},
		},
		products: map[int64]models.Product{
			10: {ID: 10, RestaurantID: 1, Name: "Ensaladilla", Price: decimal.RequireFromString("4.50"), Availability: true},
			11: {ID: 11, RestaurantID: 1, Name: "Croquetas", Price: decimal.RequireFromString("6.00"), Availability: true},
			12: {ID: 12, RestaurantID: 1, Name: "Gazpacho", Price: decimal.RequireFromString("3.00"), Availability: false},
			20: {ID: 20, RestaurantID: 2, Name: "Montadito", Price: decimal.RequireFromString("1.00"), Availability: true},
		},
	}
}

func (c *fakeCatalog) GetRestaurant(_ context.Context, id int64) (*models.Restaurant, error) {
	r, ok := c.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant %d: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	c.productLookups++
	if c.failProduct != nil {
		return nil, c.failProduct
	}
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

func restaurantID(id int64) *int64 {
	return &id
}

func TestValidator_ValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.OrderRequest
		wantMsg string
	}{
		{
			name: "valid order",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
		},
		{
			name: "valid order with several lines",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 1}, {ProductID: 11, Quantity: 3}},
			},
		},
		{
			name: "missing address",
			req: models.OrderRequest{
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
			wantMsg: "Address is required",
		},
		{
			name: "blank address",
			req: models.OrderRequest{
				Address:      "   ",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
			wantMsg: "Address is required",
		},
		{
			name: "missing restaurant",
			req: models.OrderRequest{
				Address:  "5 Main St",
				Products: []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
			wantMsg: "RestaurantId must be a positive integer",
		},
		{
			name: "negative restaurant",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(-3),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
			wantMsg: "RestaurantId must be a positive integer",
		},
		{
			name: "unknown restaurant",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(99),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 2}},
			},
			wantMsg: "The restaurantId does not exist.",
		},
		{
			name: "no products",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
			},
			wantMsg: "Order must have at least one product",
		},
		{
			name: "non positive product id",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 1}, {ProductID: 0, Quantity: 1}},
			},
			wantMsg: "Invalid productId: 0. ProductId must be greater than 0.",
		},
		{
			name: "zero quantity",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 0}},
			},
			wantMsg: "Invalid quantity for product 10: 0. Quantity must be greater than 0.",
		},
		{
			name: "negative quantity",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 11, Quantity: -2}},
			},
			wantMsg: "Invalid quantity for product 11: -2. Quantity must be greater than 0.",
		},
		{
			name: "unknown product",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 1}, {ProductID: 77, Quantity: 1}},
			},
			wantMsg: "The productId 77 does not exist.",
		},
		{
			name: "unavailable product",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 12, Quantity: 1}},
			},
			wantMsg: "The product 12 is not available.",
		},
		{
			name: "product from another restaurant",
			req: models.OrderRequest{
				Address:      "5 Main St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 10, Quantity: 1}, {ProductID: 20, Quantity: 1}},
			},
			wantMsg: "The product 20 does not belong to the specified restaurant.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(newFakeCatalog())

			err := v.ValidateCreate(context.Background(), tt.req)

			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantMsg, ve.Message)
		})
	}
}

func TestValidator_RuleOrder(t *testing.T) {
	t.Run("unknown restaurant is reported before any product lookup", func(t *testing.T) {
		catalog := newFakeCatalog()
		v := NewValidator(catalog)

		err := v.ValidateCreate(context.Background(), models.OrderRequest{
			Address:      "5 Main St",
			RestaurantID: restaurantID(99),
			Products:     []models.OrderItem{{ProductID: 77, Quantity: 0}},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
		assert.Contains(t, err.Error(), "restaurantId")
		assert.Zero(t, catalog.productLookups)
	})

	t.Run("product id rule scans every line before quantities", func(t *testing.T) {
		v := NewValidator(newFakeCatalog())

		err := v.ValidateCreate(context.Background(), models.OrderRequest{
			Address:      "5 Main St",
			RestaurantID: restaurantID(1),
			Products:     []models.OrderItem{{ProductID: 10, Quantity: 0}, {ProductID: -4, Quantity: 1}},
		})

		assert.EqualError(t, err, "Invalid productId: -4. ProductId must be greater than 0.")
	})

	t.Run("quantities are checked before existence", func(t *testing.T) {
		v := NewValidator(newFakeCatalog())

		err := v.ValidateCreate(context.Background(), models.OrderRequest{
			Address:      "5 Main St",
			RestaurantID: restaurantID(1),
			Products:     []models.OrderItem{{ProductID: 77, Quantity: 1}, {ProductID: 10, Quantity: -1}},
		})

		assert.EqualError(t, err, "Invalid quantity for product 10: -1. Quantity must be greater than 0.")
	})

	t.Run("existence is checked on every line before availability", func(t *testing.T) {
		v := NewValidator(newFakeCatalog())

		err := v.ValidateCreate(context.Background(), models.OrderRequest{
			Address:      "5 Main St",
			RestaurantID: restaurantID(1),
			Products:     []models.OrderItem{{ProductID: 12, Quantity: 1}, {ProductID: 77, Quantity: 1}},
		})

		assert.EqualError(t, err, "The productId 77 does not exist.")
	})

	t.Run("availability is checked on every line before restaurant", func(t *testing.T) {
		v := NewValidator(newFakeCatalog())

		err := v.ValidateCreate(context.Background(), models.OrderRequest{
			Address:      "5 Main St",
			RestaurantID: restaurantID(1),
			Products:     []models.OrderItem{{ProductID: 20, Quantity: 1}, {ProductID: 12, Quantity: 1}},
		})

		assert.EqualError(t, err, "The product 12 is not available.")
	})
}

func TestValidator_LookupFailure(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.failProduct = errors.New("connection reset")
	v := NewValidator(catalog)

	err := v.ValidateCreate(context.Background(), models.OrderRequest{
		Address:      "5 Main St",
		RestaurantID: restaurantID(1),
		Products:     []models.OrderItem{{ProductID: 10, Quantity: 1}},
	})

	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.ErrorContains(t, err, "connection reset")
}

func TestValidator_ValidateUpdate(t *testing.T) {
	existing := &models.Order{ID: 5, CustomerID: 1, RestaurantID: 1, Status: models.StatusPending}

	tests := []struct {
		name    string
		req     models.OrderRequest
		wantMsg string
	}{
		{
			name: "valid edit",
			req: models.OrderRequest{
				Address:  "7 Side St",
				Products: []models.OrderItem{{ProductID: 11, Quantity: 4}},
			},
		},
		{
			name: "missing address",
			req: models.OrderRequest{
				Products: []models.OrderItem{{ProductID: 11, Quantity: 4}},
			},
			wantMsg: "Address is required",
		},
		{
			name: "restaurant supplied",
			req: models.OrderRequest{
				Address:      "7 Side St",
				RestaurantID: restaurantID(1),
				Products:     []models.OrderItem{{ProductID: 11, Quantity: 4}},
			},
			wantMsg: "RestaurantId cannot be updated",
		},
		{
			name: "empty products",
			req: models.OrderRequest{
				Address:  "7 Side St",
				Products: []models.OrderItem{},
			},
			wantMsg: "Order must have at least one product",
		},
		{
			name: "zero quantity",
			req: models.OrderRequest{
				Address:  "7 Side St",
				Products: []models.OrderItem{{ProductID: 11, Quantity: 0}},
			},
			wantMsg: "Invalid quantity for product 11: 0. Quantity must be greater than 0.",
		},
		{
			name: "product from another restaurant",
			req: models.OrderRequest{
				Address:  "7 Side St",
				Products: []models.OrderItem{{ProductID: 20, Quantity: 1}},
			},
			wantMsg: "There are products from different restaurants: product 20 does not belong to restaurant 1.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(newFakeCatalog())

			err := v.ValidateUpdate(context.Background(), existing, tt.req)

			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidation(err))
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}
