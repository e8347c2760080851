// Package pricing turns base prices and percentage discounts into the amounts a
// shopper pays. All arithmetic is exact decimal; nothing is rounded here.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var (
	// DefaultShipping is the flat per-order shipping charge.
	DefaultShipping = decimal.RequireFromString("5.99")

	hundred = decimal.NewFromInt(100)
)

var (
	ErrInvalidInput    = errors.New("invalid pricing input")
	ErrProductNotFound = errors.New("product not found")
)

// LineItem is one priced product reference with its quantity.
type LineItem struct {
	UnitBasePrice   decimal.Decimal
	DiscountPercent decimal.Decimal
	Quantity        int
}

// Totals is the order-level aggregate.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// EffectivePrice applies discountPercent to basePrice. A zero discount returns
// basePrice unchanged.
func EffectivePrice(basePrice, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if basePrice.IsNegative() {
		return decimal.Zero, invalidInput("base price must be non-negative, got %s", basePrice)
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, invalidInput("discount percent must be within [0,100], got %s", discountPercent)
	}
	if discountPercent.IsZero() {
		return basePrice, nil
	}
	factor := hundred.Sub(discountPercent).Shift(-2)
	return basePrice.Mul(factor), nil
}

// EffectivePrice resolves the discounted unit price of the line.
func (li LineItem) EffectivePrice() (decimal.Decimal, error) {
	return EffectivePrice(li.UnitBasePrice, li.DiscountPercent)
}

// LineTotal is the effective unit price times quantity.
func (li LineItem) LineTotal() (decimal.Decimal, error) {
	if li.Quantity < 1 {
		return decimal.Zero, invalidInput("quantity must be at least 1, got %d", li.Quantity)
	}
	unit, err := li.EffectivePrice()
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(li.Quantity))), nil
}

// AggregateOrderTotal sums line totals and adds shipping once.
func AggregateOrderTotal(items []LineItem, shipping decimal.Decimal) (Totals, error) {
	if shipping.IsNegative() {
		return Totals{}, invalidInput("shipping must be non-negative, got %s", shipping)
	}
	subtotal := decimal.Zero
	for i, item := range items {
		line, err := item.LineTotal()
		if err != nil {
			return Totals{}, fmt.Errorf("line %d: %w", i, err)
		}
		subtotal = subtotal.Add(line)
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}, nil
}

// Round2 rounds for display only. Stored amounts keep full precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ProductNotFound reports a line item whose product no longer resolves in the catalog.
func ProductNotFound(productID string) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrProductNotFound, fmt.Sprintf("product with id %s not found", productID))
}

// IsInvalidInput reports whether err came from pricing input validation.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsProductNotFound reports whether err is a ProductNotFound failure.
func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

func invalidInput(format string, args ...any) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidInput, fmt.Sprintf(format, args...))
}
