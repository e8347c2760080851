package enums

import (
	"slices"
	"strings"
)

// Category is the fixed set of storefront departments.
type Category string

const (
	CategoryMen         Category = "Men"
	CategoryWomen       Category = "Women"
	CategoryKids        Category = "Kids"
	CategoryAccessories Category = "Accessories"
	CategoryFootwear    Category = "Footwear"
	CategoryOuterwear   Category = "Outerwear"

	// CategoryAll is a filter sentinel, never stored on a product.
	CategoryAll Category = "All"
)

var categories = set[Category]{
	CategoryMen,
	CategoryWomen,
	CategoryKids,
	CategoryAccessories,
	CategoryFootwear,
	CategoryOuterwear,
}

// Categories returns the storable categories in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

func (c Category) String() string { return string(c) }

// IsValid reports whether c may be stored on a product. CategoryAll may not.
func (c Category) IsValid() bool { return categories.has(c) }

// IsFilterNoop reports whether c disables category filtering.
func (c Category) IsFilterNoop() bool {
	return c == "" || c == CategoryAll
}

// ParseCategory matches a storable category ignoring case.
func ParseCategory(value string) (Category, error) {
	return categories.fold(value, "category")
}

// ParseCategoryFilter also accepts All and empty input, both meaning no filter.
func ParseCategoryFilter(value string) (Category, error) {
	if v := strings.TrimSpace(value); v == "" || strings.EqualFold(v, string(CategoryAll)) {
		return CategoryAll, nil
	}
	return ParseCategory(value)
}
