package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
)

// Catalog gives read access to restaurants and products.
// Implementations return an error wrapping ErrNotFound for unknown ids.
type Catalog interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// proposal is what every rule sees: the payload plus the restaurant the
// products have to belong to (the submitted one on create, the stored one on update).
type proposal struct {
	req          models.OrderRequest
	restaurantID int64
}

// rule returns a *ValidationError to reject, another error when a lookup fails, or nil.
type rule func(ctx context.Context, c Catalog, p proposal) error

// Validator checks proposed orders before anything is persisted.
type Validator struct {
	catalog Catalog
	create  []rule
	update  []rule
}

// NewValidator creates a validator reading restaurants and products from catalog
func NewValidator(catalog Catalog) *Validator {
	return &Validator{
		catalog: catalog,
		create: []rule{
			requireAddress,
			requireRestaurantID,
			requireExistingRestaurant,
			requireProducts,
			requirePositiveProductIDs,
			requirePositiveQuantities,
			requireExistingProducts,
			requireAvailableProducts,
			requireSpecifiedRestaurant,
		},
		update: []rule{
			requireAddress,
			forbidRestaurantID,
			requireProducts,
			requirePositiveProductIDs,
			requirePositiveQuantities,
			requireExistingProducts,
			requireAvailableProducts,
			requireSameRestaurant,
		},
	}
}

// ValidateCreate checks a new order. The first failing rule wins.
func (v *Validator) ValidateCreate(ctx context.Context, req models.OrderRequest) error {
	p := proposal{req: req}
	if req.RestaurantID != nil {
		p.restaurantID = *req.RestaurantID
	}
	return v.run(ctx, v.create, p)
}

// ValidateUpdate checks an edit of existing. Products must keep belonging to
// the restaurant the order was created for.
func (v *Validator) ValidateUpdate(ctx context.Context, existing *models.Order, req models.OrderRequest) error {
	return v.run(ctx, v.update, proposal{req: req, restaurantID: existing.RestaurantID})
}

func (v *Validator) run(ctx context.Context, rules []rule, p proposal) error {
	for _, r := range rules {
		if err := r(ctx, v.catalog, p); err != nil {
			return err
		}
	}
	return nil
}

func requireAddress(_ context.Context, _ Catalog, p proposal) error {
	if strings.TrimSpace(p.req.Address) == "" {
		return reject("Address is required")
	}
	return nil
}

func requireRestaurantID(_ context.Context, _ Catalog, p proposal) error {
	if p.req.RestaurantID == nil || *p.req.RestaurantID <= 0 {
		return reject("RestaurantId must be a positive integer")
	}
	return nil
}

func requireExistingRestaurant(ctx context.Context, c Catalog, p proposal) error {
	_, err := c.GetRestaurant(ctx, p.restaurantID)
	if errors.Is(err, ErrNotFound) {
		return reject("The restaurantId does not exist.")
	}
	if err != nil {
		return fmt.Errorf("lookup restaurant %d: %w", p.restaurantID, err)
	}
	return nil
}

func forbidRestaurantID(_ context.Context, _ Catalog, p proposal) error {
	if p.req.RestaurantID != nil {
		return reject("RestaurantId cannot be updated")
	}
	return nil
}

func requireProducts(_ context.Context, _ Catalog, p proposal) error {
	if len(p.req.Products) == 0 {
		return reject("Order must have at least one product")
	}
	return nil
}

func requirePositiveProductIDs(_ context.Context, _ Catalog, p proposal) error {
	for _, item := range p.req.Products {
		if item.ProductID <= 0 {
			return reject(fmt.Sprintf("Invalid productId: %d. ProductId must be greater than 0.", item.ProductID))
		}
	}
	return nil
}

func requirePositiveQuantities(_ context.Context, _ Catalog, p proposal) error {
	for _, item := range p.req.Products {
		if item.Quantity <= 0 {
			return reject(fmt.Sprintf("Invalid quantity for product %d: %d. Quantity must be greater than 0.", item.ProductID, item.Quantity))
		}
	}
	return nil
}

func requireExistingProducts(ctx context.Context, c Catalog, p proposal) error {
	for _, item := range p.req.Products {
		_, err := c.GetProduct(ctx, item.ProductID)
		if errors.Is(err, ErrNotFound) {
			return reject(fmt.Sprintf("The productId %d does not exist.", item.ProductID))
		}
		if err != nil {
			return fmt.Errorf("lookup product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

func requireAvailableProducts(ctx context.Context, c Catalog, p proposal) error {
	for _, item := range p.req.Products {
		product, err := c.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("lookup product %d: %w", item.ProductID, err)
		}
		if !product.Availability {
			return reject(fmt.Sprintf("The product %d is not available.", item.ProductID))
		}
	}
	return nil
}

func requireSpecifiedRestaurant(ctx context.Context, c Catalog, p proposal) error {
	for _, item := range p.req.Products {
		product, err := c.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("lookup product %d: %w", item.ProductID, err)
		}
		if product.RestaurantID != p.restaurantID {
			return reject(fmt.Sprintf("The product %d does not belong to the specified restaurant.", item.ProductID))
		}
	}
	return nil
}

func requireSameRestaurant(ctx context.Context, c Catalog, p proposal) error {
	for _, item := range p.req.Products {
		product, err := c.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("lookup product %d: %w", item.ProductID, err)
		}
		if product.RestaurantID != p.restaurantID {
			return reject(fmt.Sprintf("There are products from different restaurants: product %d does not belong to restaurant %d.", item.ProductID, p.restaurantID))
		}
	}
	return nil
}
