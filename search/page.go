package search

// Page is a slice of a larger result set together with its facets
type Page[T any] struct {
	Content  []T
	Pageable Pageable
	Total    int64
	Facets   []Facet
}

// NewPage creates a page. When the content is the tail of the result set the
// total is derived from it, so a stale backend count cannot point past the end.
func NewPage[T any](content []T, pageable Pageable, total int64, facets []Facet) *Page[T] {
	if content == nil {
		content = []T{}
	}
	if facets == nil {
		facets = []Facet{}
	}

	if len(content) > 0 && pageable.InRange() {
		offset := int64(pageable.Offset())
		if offset+int64(pageable.Size) > total {
			total = offset + int64(len(content))
		}
	}

	return &Page[T]{
		Content:  content,
		Pageable: pageable,
		Total:    total,
		Facets:   facets,
	}
}

// Number returns the zero-based page index
func (p *Page[T]) Number() int {
	return p.Pageable.Page
}

// Size returns the requested page size
func (p *Page[T]) Size() int {
	return p.Pageable.Size
}

// Sort returns the sort the page was requested with
func (p *Page[T]) Sort() Sort {
	return p.Pageable.Sort
}

// NumberOfElements returns the number of items on this page
func (p *Page[T]) NumberOfElements() int {
	return len(p.Content)
}

// TotalPages returns the number of pages for the total count
func (p *Page[T]) TotalPages() int {
	if p.Pageable.Size <= 0 {
		return 0
	}
	size := int64(p.Pageable.Size)
	return int((p.Total + size - 1) / size)
}

// HasContent returns true if the page has at least one item
func (p *Page[T]) HasContent() bool {
	return len(p.Content) > 0
}

// HasNext returns true if there is a page after this one
func (p *Page[T]) HasNext() bool {
	return p.Number() < p.TotalPages()-1
}

// HasPrevious returns true if there is a page before this one
func (p *Page[T]) HasPrevious() bool {
	return p.Number() > 0
}

// NextPageable returns the request for the next page, or the current one on the last page
func (p *Page[T]) NextPageable() Pageable {
	if p.HasNext() {
		return p.Pageable.Next()
	}
	return p.Pageable
}

// PreviousPageable returns the request for the previous page, or the current one on the first page
func (p *Page[T]) PreviousPageable() Pageable {
	if p.HasPrevious() {
		return p.Pageable.Previous()
	}
	return p.Pageable
}
