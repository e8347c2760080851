package enums

import "strings"

// SortKey selects the catalog ordering.
type SortKey string

const (
	SortFeatured    SortKey = "featured"
	SortPriceAsc    SortKey = "price-asc"
	SortPriceDesc   SortKey = "price-desc"
	SortNewest      SortKey = "newest"
	SortBestselling SortKey = "bestselling"
)

var sortKeys = set[SortKey]{
	SortFeatured,
	SortPriceAsc,
	SortPriceDesc,
	SortNewest,
	SortBestselling,
}

func (k SortKey) String() string { return string(k) }

func (k SortKey) IsValid() bool { return sortKeys.has(k) }

// ParseSortKey is the strict parser used at the API boundary. Empty input
// is featured.
func ParseSortKey(value string) (SortKey, error) {
	if strings.TrimSpace(value) == "" {
		return SortFeatured, nil
	}
	return sortKeys.fold(value, "sort key")
}
