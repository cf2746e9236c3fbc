package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/ordering"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", ordering.ErrNotFound)
	// ErrStatusMismatch is returned when a write expected a status the order no longer has.
	ErrStatusMismatch = fmt.Errorf("order status changed concurrently: %w", ordering.ErrConflict)
)

// OrderRepository defines the interface for order persistence.
// Every mutation of an existing order is conditional on its expected current status.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order, expected models.OrderStatus) error
	UpdateStatus(ctx context.Context, id int64, expected, next models.OrderStatus, at time.Time) (*models.Order, error)
	Delete(ctx context.Context, id int64, expected models.OrderStatus) error
}

// InMemoryOrderRepository implements OrderRepository with in-memory storage
type InMemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[int64]models.Order
	nextID int64
}

// NewInMemoryOrderRepository creates an empty in-memory order repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[int64]models.Order),
		nextID: 1,
	}
}

// Create assigns an ID to order and stores a copy of it
func (r *InMemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = r.nextID
	r.nextID++
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID
func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	order = cloneOrder(order)
	return &order, nil
}

// ListByCustomer returns the orders of a customer, newest first
func (r *InMemoryOrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.CustomerID == customerID }), nil
}

// ListByRestaurant returns the orders placed at a restaurant, newest first
func (r *InMemoryOrderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.RestaurantID == restaurantID }), nil
}

func (r *InMemoryOrderRepository) list(match func(models.Order) bool) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make([]models.Order, 0)
	for _, order := range r.orders {
		if match(order) {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// Update replaces the address, lines and prices of an order still in expected status
func (r *InMemoryOrderRepository) Update(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return ErrOrderNotFound
	}
	if stored.Status != expected {
		return ErrStatusMismatch
	}

	stored.Address = order.Address
	stored.Lines = append([]models.OrderLine(nil), order.Lines...)
	stored.ShippingCosts = order.ShippingCosts
	stored.Price = order.Price
	stored.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = stored

	*order = cloneOrder(stored)
	return nil
}

// UpdateStatus moves an order from expected to next, stamping the matching timestamp
func (r *InMemoryOrderRepository) UpdateStatus(ctx context.Context, id int64, expected, next models.OrderStatus, at time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	if stored.Status != expected {
		return nil, ErrStatusMismatch
	}

	stored.Status = next
	stored.StampStatus(next, at)
	r.orders[id] = stored

	order := cloneOrder(stored)
	return &order, nil
}

// Delete removes an order still in expected status
func (r *InMemoryOrderRepository) Delete(ctx context.Context, id int64, expected models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[id]
	if !exists {
		return ErrOrderNotFound
	}
	if stored.Status != expected {
		return ErrStatusMismatch
	}

	delete(r.orders, id)
	return nil
}

func cloneOrder(order models.Order) models.Order {
	order.Lines = append([]models.OrderLine(nil), order.Lines...)
	return order
}
