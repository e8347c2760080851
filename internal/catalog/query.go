package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Options narrows a product listing. Every field is optional and set fields
// combine with AND.
type Options struct {
	// Category keeps only matching products; empty or enums.CategoryAll disables it.
	Category enums.Category
	// MinPrice and MaxPrice bound the base price inclusively.
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	// Query is matched case-insensitively against name, description and category.
	// Surrounding whitespace is part of the needle; a blank query matches everything.
	Query string
}

func (o Options) isEmpty() bool {
	return o.Category.IsFilterNoop() && o.MinPrice == nil && o.MaxPrice == nil && strings.TrimSpace(o.Query) == ""
}

func (o Options) matches(p Product, needle string) bool {
	if !o.Category.IsFilterNoop() && p.Category != o.Category {
		return false
	}
	if o.MinPrice != nil && p.Price.LessThan(*o.MinPrice) {
		return false
	}
	if o.MaxPrice != nil && p.Price.GreaterThan(*o.MaxPrice) {
		return false
	}
	if needle != "" &&
		!strings.Contains(strings.ToLower(p.Name), needle) &&
		!strings.Contains(strings.ToLower(p.Description), needle) &&
		!strings.Contains(strings.ToLower(string(p.Category)), needle) {
		return false
	}
	return true
}

// Filter returns the products that satisfy every set option. With no option
// set the input is returned as is. The input is never modified.
func Filter(products []Product, opts Options) []Product {
	if opts.isEmpty() {
		return products
	}
	var needle string
	if strings.TrimSpace(opts.Query) != "" {
		needle = strings.ToLower(opts.Query)
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if opts.matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a reordered copy. Ties keep their input order and unknown keys
// behave like featured.
func Sort(products []Product, key enums.SortKey) []Product {
	out := make([]Product, len(products))
	copy(out, products)

	var less func(a, b Product) bool
	switch key {
	case enums.SortPriceAsc:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case enums.SortPriceDesc:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	case enums.SortNewest:
		less = func(a, b Product) bool { return a.IsNew && !b.IsNew }
	case enums.SortBestselling:
		less = func(a, b Product) bool { return a.Rating.GreaterThan(b.Rating) }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Query filters then sorts.
func Query(products []Product, opts Options, key enums.SortKey) []Product {
	return Sort(Filter(products, opts), key)
}
