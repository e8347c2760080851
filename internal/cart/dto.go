package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// LineDTO is a priced cart line.
type LineDTO struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	Category        enums.Category  `json:"category"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	EffectivePrice  decimal.Decimal `json:"effective_price"`
	Quantity        int             `json:"quantity"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// SummaryDTO is the cart as shown to the shopper.
type SummaryDTO struct {
	Items      []LineDTO       `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
}

func newSummary(c *Cart, shipping decimal.Decimal) (*SummaryDTO, error) {
	if len(c.Items) == 0 {
		shipping = decimal.Zero
	}
	totals, err := pricing.AggregateOrderTotal(c.LineItems(), shipping)
	if err != nil {
		return nil, err
	}

	lines := make([]LineDTO, 0, len(c.Items))
	for _, item := range c.Items {
		li := pricing.LineItem{UnitBasePrice: item.UnitBasePrice, DiscountPercent: item.DiscountPercent, Quantity: item.Quantity}
		effective, err := li.EffectivePrice()
		if err != nil {
			return nil, err
		}
		lineTotal, err := li.LineTotal()
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineDTO{
			ProductID:       item.ProductID,
			Name:            item.Name,
			Image:           item.Image,
			Category:        item.Category,
			Price:           item.UnitBasePrice,
			DiscountPercent: item.DiscountPercent,
			EffectivePrice:  pricing.Round2(effective),
			Quantity:        item.Quantity,
			LineTotal:       pricing.Round2(lineTotal),
		})
	}

	return &SummaryDTO{
		Items:      lines,
		Subtotal:   pricing.Round2(totals.Subtotal),
		Shipping:   pricing.Round2(totals.Shipping),
		Total:      pricing.Round2(totals.Total),
		TotalItems: c.TotalItems(),
	}, nil
}
