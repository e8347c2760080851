package pagination

// Page holds offset pagination inputs for listings that are computed in memory.
type Page struct {
	Limit  int
	Offset int
}

// PageInfo describes the window returned for an offset query.
type PageInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// Normalize clamps the limit and floors a negative offset at zero.
func (p Page) Normalize() Page {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: NormalizeLimit(p.Limit), Offset: offset}
}

// Bounds returns the [start, end) slice indexes of the page within total items.
func (p Page) Bounds(total int) (int, int) {
	n := p.Normalize()
	if n.Offset >= total {
		return total, total
	}
	end := n.Offset + n.Limit
	if end > total {
		end = total
	}
	return n.Offset, end
}

// Window slices items to the page and reports the resulting page info.
func Window[T any](items []T, p Page) ([]T, PageInfo) {
	n := p.Normalize()
	start, end := n.Bounds(len(items))
	return items[start:end], PageInfo{
		Limit:   n.Limit,
		Offset:  n.Offset,
		Total:   len(items),
		HasMore: end < len(items),
	}
}
