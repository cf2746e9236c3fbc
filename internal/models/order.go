package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusSent      OrderStatus = "sent"
	StatusDelivered OrderStatus = "delivered"
)

// OrderRequest represents an incoming order payload for create and update.
// RestaurantID is a pointer so that an absent field can be told apart from zero.
type OrderRequest struct {
	Address      string      `json:"address"`
	RestaurantID *int64      `json:"restaurantId,omitempty"`
	Products     []OrderItem `json:"products"`
}

// OrderItem represents a single requested line in an order
type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderLine is a persisted order line with the unit price captured when it was placed
type OrderLine struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order represents a placed order
type Order struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"userId"`
	RestaurantID  int64           `json:"restaurantId"`
	Address       string          `json:"address"`
	Status        OrderStatus     `json:"status"`
	Lines         []OrderLine     `json:"products"`
	ShippingCosts decimal.Decimal `json:"shippingCosts"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ConfirmedAt   *time.Time      `json:"startedAt,omitempty"`
	SentAt        *time.Time      `json:"sentAt,omitempty"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// StampStatus sets the timestamp matching status to at.
func (o *Order) StampStatus(status OrderStatus, at time.Time) {
	switch status {
	case StatusConfirmed:
		o.ConfirmedAt = &at
	case StatusSent:
		o.SentAt = &at
	case StatusDelivered:
		o.DeliveredAt = &at
	}
	o.UpdatedAt = at
}
