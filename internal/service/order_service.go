package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/events"
	"github.com/Lixing-Zhang/deliverus-backend/internal/metrics"
	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/ordering"
	"github.com/Lixing-Zhang/deliverus-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// OrderServiceDeps groups the collaborators of an OrderService
type OrderServiceDeps struct {
	Orders    repository.OrderRepository
	Catalog   repository.CatalogRepository
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// FreeShippingThreshold waives shipping costs when the lines subtotal is
	// above it. Zero disables free shipping.
	FreeShippingThreshold decimal.Decimal
}

// OrderService handles order business logic
type OrderService struct {
	orders       repository.OrderRepository
	catalog      repository.CatalogRepository
	validator    *ordering.Validator
	publisher    events.Publisher
	metrics      *metrics.Metrics
	log          *slog.Logger
	freeShipping decimal.Decimal
	now          func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(deps OrderServiceDeps) *OrderService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &OrderService{
		orders:       deps.Orders,
		catalog:      deps.Catalog,
		validator:    ordering.NewValidator(deps.Catalog),
		publisher:    publisher,
		metrics:      deps.Metrics,
		log:          log,
		freeShipping: deps.FreeShippingThreshold,
		now:          time.Now,
	}
}

// CreateOrder validates req and stores it as a pending order of actor
func (s *OrderService) CreateOrder(ctx context.Context, req models.OrderRequest, actor models.Actor) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, fmt.Errorf("create order requires role %s: %w", models.RoleCustomer, ordering.ErrForbidden)
	}

	if err := s.validator.ValidateCreate(ctx, req); err != nil {
		if ordering.IsValidation(err) {
			s.metrics.Rejected("create")
		}
		return nil, err
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, *req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}
	lines, err := s.priceLines(ctx, req.Products)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		CustomerID:   actor.ID,
		RestaurantID: restaurant.ID,
		Address:      req.Address,
		Status:       models.StatusPending,
		Lines:        lines,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.applyPricing(order, restaurant)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, events.OrderCreated, order, actor, now)
	return order, nil
}

// UpdateOrder replaces address and lines of a pending order owned by actor
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req models.OrderRequest, actor models.Actor) (*models.Order, error) {
	order, err := s.authorize(ctx, ordering.ActionEdit, orderID, actor)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(ctx, order, req); err != nil {
		if ordering.IsValidation(err) {
			s.metrics.Rejected("update")
		}
		return nil, err
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}
	lines, err := s.priceLines(ctx, req.Products)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order.Address = req.Address
	order.Lines = lines
	order.UpdatedAt = now
	s.applyPricing(order, restaurant)

	if err := s.orders.Update(ctx, order, models.StatusPending); err != nil {
		s.metrics.Transitioned(string(ordering.ActionEdit), outcome(err))
		return nil, fmt.Errorf("update order %d: %w", orderID, err)
	}
	s.metrics.Transitioned(string(ordering.ActionEdit), outcome(nil))

	s.publish(ctx, events.OrderUpdated, order, actor, now)
	return order, nil
}

// DeleteOrder removes a pending order owned by actor
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64, actor models.Actor) error {
	order, err := s.authorize(ctx, ordering.ActionRemove, orderID, actor)
	if err != nil {
		return err
	}

	err = s.orders.Delete(ctx, orderID, models.StatusPending)
	s.metrics.Transitioned(string(ordering.ActionRemove), outcome(err))
	if err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}

	s.publish(ctx, events.OrderDeleted, order, actor, s.now())
	return nil
}

// Transition moves an order to target on behalf of the owner of its restaurant
func (s *OrderService) Transition(ctx context.Context, orderID int64, target models.OrderStatus, actor models.Actor) (*models.Order, error) {
	action, err := ordering.ActionFor(target)
	if err != nil {
		return nil, err
	}

	order, err := s.authorize(ctx, action, orderID, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, target, now)
	s.metrics.Transitioned(string(action), outcome(err))
	if err != nil {
		return nil, fmt.Errorf("%s order %d: %w", action, orderID, err)
	}

	s.publish(ctx, events.TypeFor(target), updated, actor, now)
	return updated, nil
}

// CanView reports whether actor may read the order
func (s *OrderService) CanView(ctx context.Context, orderID int64, actor models.Actor) (bool, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.canView(ctx, order, actor)
}

// GetOrder returns an order visible to actor
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	visible, err := s.canView(ctx, order, actor)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("order %d not visible to user %d: %w", orderID, actor.ID, ordering.ErrForbidden)
	}
	return order, nil
}

// ListCustomerOrders returns the orders placed by actor, newest first
func (s *OrderService) ListCustomerOrders(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, fmt.Errorf("list orders requires role %s: %w", models.RoleCustomer, ordering.ErrForbidden)
	}
	return s.orders.ListByCustomer(ctx, actor.ID)
}

// ListRestaurantOrders returns the orders of a restaurant to its owner or an admin
func (s *OrderService) ListRestaurantOrders(ctx context.Context, restaurantID int64, actor models.Actor) ([]models.Order, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleOwner:
	default:
		return nil, fmt.Errorf("list restaurant orders: %w", ordering.ErrForbidden)
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleOwner && restaurant.OwnerID != actor.ID {
		return nil, fmt.Errorf("restaurant %d not owned by user %d: %w", restaurantID, actor.ID, ordering.ErrForbidden)
	}
	return s.orders.ListByRestaurant(ctx, restaurantID)
}

// authorize runs the lifecycle guards for action in order: role, existence,
// ownership, status. It returns the loaded order.
func (s *OrderService) authorize(ctx context.Context, action ordering.Action, orderID int64, actor models.Actor) (*models.Order, error) {
	if err := ordering.CheckRole(action, actor); err != nil {
		s.metrics.Transitioned(string(action), outcome(err))
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.metrics.Transitioned(string(action), outcome(err))
		return nil, err
	}

	var restaurant *models.Restaurant
	if actor.Role == models.RoleOwner {
		if restaurant, err = s.restaurantOf(ctx, order); err != nil {
			return nil, err
		}
	}

	if _, err := ordering.Authorize(action, actor, order, restaurant); err != nil {
		s.metrics.Transitioned(string(action), outcome(err))
		return nil, err
	}
	return order, nil
}

func (s *OrderService) canView(ctx context.Context, order *models.Order, actor models.Actor) (bool, error) {
	var restaurant *models.Restaurant
	if actor.Role == models.RoleOwner {
		r, err := s.restaurantOf(ctx, order)
		if err != nil {
			return false, err
		}
		restaurant = r
	}
	return ordering.CanView(actor, order, restaurant), nil
}

// restaurantOf returns nil without error when the order's restaurant is gone,
// which makes every ownership check fail.
func (s *OrderService) restaurantOf(ctx context.Context, order *models.Order) (*models.Restaurant, error) {
	restaurant, err := s.catalog.GetRestaurant(ctx, order.RestaurantID)
	if errors.Is(err, ordering.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant %d: %w", order.RestaurantID, err)
	}
	return restaurant, nil
}

// priceLines copies the current product prices into the order lines
func (s *OrderService) priceLines(ctx context.Context, items []models.OrderItem) ([]models.OrderLine, error) {
	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", item.ProductID, err)
		}
		lines = append(lines, models.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}
	return lines, nil
}

func (s *OrderService) applyPricing(order *models.Order, restaurant *models.Restaurant) {
	subtotal := order.Subtotal()
	order.ShippingCosts = restaurant.ShippingCosts
	if s.freeShipping.IsPositive() && subtotal.GreaterThan(s.freeShipping) {
		order.ShippingCosts = decimal.Zero
	}
	order.Price = subtotal.Add(order.ShippingCosts)
}

// publish is best effort: the order is already persisted
func (s *OrderService) publish(ctx context.Context, eventType events.Type, order *models.Order, actor models.Actor, at time.Time) {
	event := events.NewOrderEvent(eventType, order, actor, at)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish order event",
			"event_id", event.ID,
			"type", event.Type,
			"order_id", order.ID,
			"error", err,
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ordering.ErrForbidden):
		return "forbidden"
	case errors.Is(err, ordering.ErrNotFound):
		return "not_found"
	case errors.Is(err, ordering.ErrConflict):
		return "conflict"
	}
	return "error"
}
