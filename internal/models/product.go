package models

import "github.com/shopspring/decimal"

// Product represents a dish offered by a restaurant
type Product struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurantId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Availability bool            `json:"availability"`
}

// Restaurant represents a restaurant and the owner user that manages it
type Restaurant struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	ShippingCosts decimal.Decimal `json:"shippingCosts"`
	OwnerID       int64           `json:"userId"`
}
