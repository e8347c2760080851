package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ItemDTO is one frozen order line.
type ItemDTO struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitBasePrice   decimal.Decimal `json:"unit_base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Price           decimal.Decimal `json:"price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// OrderDTO is the order as returned to the shopper and to admins.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Items           []ItemDTO             `json:"items"`
	TotalItems      int                   `json:"total_items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	Shipping        decimal.Decimal       `json:"shipping"`
	Total           decimal.Decimal       `json:"total"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func newOrderDTO(o models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(o.Items))
	count := 0
	for _, it := range o.Items {
		items = append(items, ItemDTO{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			UnitBasePrice:   it.UnitBasePrice,
			DiscountPercent: it.DiscountPercent,
			Price:           pricing.Round2(it.UnitPrice),
			LineTotal:       pricing.Round2(it.LineTotal),
		})
		count += it.Quantity
	}
	return OrderDTO{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		ShippingAddress: types.ShippingAddress{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Country: o.ShippingAddress.Country,
		},
		Items:      items,
		TotalItems: count,
		Subtotal:   pricing.Round2(o.Subtotal),
		Shipping:   pricing.Round2(o.ShippingCost),
		Total:      pricing.Round2(o.TotalAmount),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
