// Package cart keeps each shopper's cart as a single document keyed by user.
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// Item is one cart line. Prices are captured when the product is first added.
type Item struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	Category        enums.Category  `json:"category"`
	UnitBasePrice   decimal.Decimal `json:"unit_base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Quantity        int             `json:"quantity"`
	AddedAt         time.Time       `json:"added_at"`
}

// Cart is the stored document.
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
}

// TotalItems sums the quantities of every line.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// LineItems converts the cart into pricing engine inputs.
func (c *Cart) LineItems() []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		out = append(out, pricing.LineItem{
			UnitBasePrice:   item.UnitBasePrice,
			DiscountPercent: item.DiscountPercent,
			Quantity:        item.Quantity,
		})
	}
	return out
}
