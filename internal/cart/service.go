package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 99

type productLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Service exposes cart operations for the authenticated shopper.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error)
	Items(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*SummaryDTO, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*SummaryDTO, error)
	Decrement(ctx context.Context, userID, productID uuid.UUID) (*SummaryDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*SummaryDTO, error)
	RemoveOrdered(ctx context.Context, userID uuid.UUID, ordered map[uuid.UUID]int) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store    Store
	products productLookup
	shipping decimal.Decimal
	now      func() time.Time
}

// NewService builds a cart service. shipping is charged once for a non-empty cart.
func NewService(store Store, products productLookup, shipping decimal.Decimal) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if shipping.IsNegative() {
		return nil, fmt.Errorf("shipping must be non-negative")
	}
	return &service{store: store, products: products, shipping: shipping, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newSummary(c, s.shipping)
}

func (s *service) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

// AddItem increments an existing line or appends a new one with a price snapshot.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*SummaryDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(c *Cart) error {
		if i := c.indexOf(productID); i >= 0 {
			next := c.Items[i].Quantity + quantity
			if next > MaxLineQuantity {
				return tooMany()
			}
			c.Items[i].Quantity = next
			return nil
		}
		if quantity > MaxLineQuantity {
			return tooMany()
		}
		p, err := s.products.Lookup(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is out of stock")
		}
		c.Items = append(c.Items, Item{
			ProductID:       p.ID,
			Name:            p.Name,
			Image:           p.Image,
			Category:        p.Category,
			UnitBasePrice:   p.Price,
			DiscountPercent: p.Discount,
			Quantity:        quantity,
			AddedAt:         s.now().UTC(),
		})
		return nil
	})
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*SummaryDTO, error) {
	if quantity > MaxLineQuantity {
		return nil, tooMany()
	}
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.indexOf(productID)
		if i < 0 {
			return errNotInCart()
		}
		if quantity <= 0 {
			c.remove(i)
		} else {
			c.Items[i].Quantity = quantity
		}
		return nil
	})
}

// Decrement lowers a line by one. A line at quantity 1 is left unchanged.
func (s *service) Decrement(ctx context.Context, userID, productID uuid.UUID) (*SummaryDTO, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		i := c.indexOf(productID)
		if i < 0 {
			return errNotInCart()
		}
		if c.Items[i].Quantity > 1 {
			c.Items[i].Quantity--
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*SummaryDTO, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		if i := c.indexOf(productID); i >= 0 {
			c.remove(i)
		}
		return nil
	})
}

// RemoveOrdered takes checked-out quantities off the cart. Lines added or
// topped up after the checkout read keep the difference.
func (s *service) RemoveOrdered(ctx context.Context, userID uuid.UUID, ordered map[uuid.UUID]int) error {
	if len(ordered) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, userID, func(c *Cart) error {
		kept := c.Items[:0]
		for _, item := range c.Items {
			item.Quantity -= ordered[item.ProductID]
			if item.Quantity > 0 {
				kept = append(kept, item)
			}
		}
		c.Items = kept
		return nil
	})
	return err
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

// mutate runs edit inside a store update. Domain errors from edit pass through;
// anything else is a storage failure.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, edit func(c *Cart) error) (*SummaryDTO, error) {
	c, err := s.store.Update(ctx, userID, func(c *Cart) error {
		if err := edit(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return newSummary(c, s.shipping)
}

func tooMany() error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", MaxLineQuantity)
}

func errNotInCart() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
}
