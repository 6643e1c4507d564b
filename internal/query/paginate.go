package query

// Pagination ceilings per query class.
const (
	DefaultLimit     = 50
	MaxSearchLimit   = 500
	MaxCategoryLimit = 1000
)

// Page is a validated limit/offset pair. A zero limit is honored literally:
// the response is empty but carries the honest total.
type Page struct {
	Limit  int
	Offset int
	// limitSet distinguishes an explicit 0 from an absent limit.
	limitSet bool
}

// NewPage builds a page from raw inputs. hasLimit marks whether the caller
// supplied the limit explicitly.
func NewPage(limit, offset int, hasLimit bool) Page {
	return Page{Limit: limit, Offset: offset, limitSet: hasLimit}
}

// Validate clamps the page to its ceiling and rejects negative bounds.
func (p *Page) Validate(maxLimit int) error {
	if p.Offset < 0 {
		return InvalidArgf("offset must be >= 0, got %d", p.Offset)
	}
	if p.limitSet && p.Limit < 0 {
		return InvalidArgf("limit must be >= 0, got %d", p.Limit)
	}
	if !p.limitSet {
		p.Limit = DefaultLimit
		p.limitSet = true
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return nil
}

// Slice applies the page to items, returning the window, the honest total,
// and whether more items follow.
func Slice[T any](items []T, p Page) (window []T, total int, hasMore bool) {
	total = len(items)
	if p.Offset >= total {
		return nil, total, false
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return items[p.Offset:end], total, end < total
}
