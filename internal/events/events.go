package events

import (
	"context"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/google/uuid"
)

// Type names what happened to an order
type Type string

const (
	OrderCreated   Type = "order.created"
	OrderUpdated   Type = "order.updated"
	OrderDeleted   Type = "order.deleted"
	OrderConfirmed Type = "order.confirmed"
	OrderSent      Type = "order.sent"
	OrderDelivered Type = "order.delivered"
)

// OrderEvent is published after an order mutation has been persisted
type OrderEvent struct {
	ID           string             `json:"id"`
	Type         Type               `json:"type"`
	OrderID      int64              `json:"orderId"`
	RestaurantID int64              `json:"restaurantId"`
	CustomerID   int64              `json:"userId"`
	Status       models.OrderStatus `json:"status"`
	ActorID      int64              `json:"actorId"`
	OccurredAt   time.Time          `json:"occurredAt"`
}

// NewOrderEvent builds an event with a fresh ID for order
func NewOrderEvent(eventType Type, order *models.Order, actor models.Actor, at time.Time) OrderEvent {
	return OrderEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Status:       order.Status,
		ActorID:      actor.ID,
		OccurredAt:   at.UTC(),
	}
}

// TypeFor returns the event type for a status an order just reached
func TypeFor(status models.OrderStatus) Type {
	switch status {
	case models.StatusConfirmed:
		return OrderConfirmed
	case models.StatusSent:
		return OrderSent
	case models.StatusDelivered:
		return OrderDelivered
	}
	return OrderUpdated
}

// Publisher delivers order events to interested parties
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
