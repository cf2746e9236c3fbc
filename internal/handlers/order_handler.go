package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/Lixing-Zhang/deliverus-backend/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// Index handles GET /api/orders
func (h *OrderHandler) Index(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}

	orders, err := h.orderService.ListCustomerOrders(r.Context(), a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), req, a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
	h.log.Info("order created", "order_id", order.ID, "customer_id", a.ID, "lines", len(order.Lines))
}

// Show handles GET /api/orders/{orderId}
func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderId", h.log)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// Update handles PUT /api/orders/{orderId}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderId", h.log)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.UpdateOrder(r.Context(), orderID, req, a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// Destroy handles DELETE /api/orders/{orderId}
func (h *OrderHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderId", h.log)
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(r.Context(), orderID, a); err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted."}, h.log)
}

// Confirm handles PATCH /api/orders/{orderId}/confirm
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusConfirmed)
}

// Send handles PATCH /api/orders/{orderId}/send
func (h *OrderHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusSent)
}

// Deliver handles PATCH /api/orders/{orderId}/deliver
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusDelivered)
}

// RestaurantOrders handles GET /api/restaurants/{restaurantId}/orders
func (h *OrderHandler) RestaurantOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}
	restaurantID, ok := idParam(w, r, "restaurantId", h.log)
	if !ok {
		return
	}

	orders, err := h.orderService.ListRestaurantOrders(r.Context(), restaurantID, a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, target models.OrderStatus) {
	a, ok := actor(w, r, h.log)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderId", h.log)
	if !ok {
		return
	}

	order, err := h.orderService.Transition(r.Context(), orderID, target, a)
	if err != nil {
		WriteServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
	h.log.Info("order status changed", "order_id", order.ID, "status", order.Status, "user_id", a.ID)
}

func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request) (models.OrderRequest, bool) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return req, false
	}
	return req, true
}
