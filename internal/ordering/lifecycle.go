package ordering

import (
	"fmt"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
)

// Action is a state-changing request on an existing order
type Action string

const (
	ActionEdit    Action = "edit"
	ActionRemove  Action = "remove"
	ActionConfirm Action = "confirm"
	ActionSend    Action = "send"
	ActionDeliver Action = "deliver"
)

// owns decides whether actor owns the order for the purpose of an action.
type owns func(actor models.Actor, order *models.Order, restaurant *models.Restaurant) bool

func ownsOrder(actor models.Actor, order *models.Order, _ *models.Restaurant) bool {
	return actor.ID == order.CustomerID
}

func ownsRestaurant(actor models.Actor, order *models.Order, restaurant *models.Restaurant) bool {
	return restaurant != nil && restaurant.ID == order.RestaurantID && actor.ID == restaurant.OwnerID
}

type guard struct {
	role  models.Role
	owner owns
	from  models.OrderStatus
	to    models.OrderStatus
}

// guards is the authorization matrix for every action on an existing order.
var guards = map[Action]guard{
	ActionEdit:    {role: models.RoleCustomer, owner: ownsOrder, from: models.StatusPending, to: models.StatusPending},
	ActionRemove:  {role: models.RoleCustomer, owner: ownsOrder, from: models.StatusPending, to: models.StatusPending},
	ActionConfirm: {role: models.RoleOwner, owner: ownsRestaurant, from: models.StatusPending, to: models.StatusConfirmed},
	ActionSend:    {role: models.RoleOwner, owner: ownsRestaurant, from: models.StatusConfirmed, to: models.StatusSent},
	ActionDeliver: {role: models.RoleOwner, owner: ownsRestaurant, from: models.StatusSent, to: models.StatusDelivered},
}

// ActionFor maps a target status to the owner action that reaches it.
func ActionFor(target models.OrderStatus) (Action, error) {
	switch target {
	case models.StatusConfirmed:
		return ActionConfirm, nil
	case models.StatusSent:
		return ActionSend, nil
	case models.StatusDelivered:
		return ActionDeliver, nil
	}
	return "", reject(fmt.Sprintf("Status %q cannot be requested.", target))
}

// CheckRole fails with ErrForbidden when actor's role may never perform action.
// It runs before the order is loaded so that wrong roles learn nothing about it.
func CheckRole(action Action, actor models.Actor) error {
	g, ok := guards[action]
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}
	if actor.Role != g.role {
		return fmt.Errorf("%s requires role %s: %w", action, g.role, ErrForbidden)
	}
	return nil
}

// Authorize checks role, ownership and current status for action on order and
// returns the status the order moves to. restaurant is the order's restaurant
// and may be nil for customer actions.
func Authorize(action Action, actor models.Actor, order *models.Order, restaurant *models.Restaurant) (models.OrderStatus, error) {
	if err := CheckRole(action, actor); err != nil {
		return "", err
	}
	g := guards[action]
	if !g.owner(actor, order, restaurant) {
		return "", fmt.Errorf("%s order %d: not owned by user %d: %w", action, order.ID, actor.ID, ErrForbidden)
	}
	if order.Status != g.from {
		return "", fmt.Errorf("%s order %d: status is %s, want %s: %w", action, order.ID, order.Status, g.from, ErrConflict)
	}
	return g.to, nil
}

// CanView reports whether actor may read order.
func CanView(actor models.Actor, order *models.Order, restaurant *models.Restaurant) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return ownsOrder(actor, order, restaurant)
	case models.RoleOwner:
		return ownsRestaurant(actor, order, restaurant)
	}
	return false
}
