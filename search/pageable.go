package search

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidArgument is returned when a required argument is missing or out of range
var ErrInvalidArgument = errors.New("invalid argument")

// Direction is the direction of a sort order
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses a direction case-insensitively
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc, true
	case "desc":
		return Desc, true
	default:
		return "", false
	}
}

// Order is a single sort property and its direction
type Order struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

// IsAscending returns true if the order is ascending
func (o Order) IsAscending() bool {
	return o.Direction != Desc
}

// Sort is an ordered list of sort orders
type Sort []Order

// By creates ascending orders for the given properties
func By(properties ...string) Sort {
	s := make(Sort, 0, len(properties))
	for _, p := range properties {
		s = append(s, Order{Property: p, Direction: Asc})
	}
	return s
}

// IsSorted returns true if the sort has at least one order
func (s Sort) IsSorted() bool {
	return len(s) > 0
}

// MaxOffset bounds the offset plus size of any page request
const MaxOffset = math.MaxInt32

// Pageable describes which page of what size in what order to fetch.
// Page is zero-based.
type Pageable struct {
	Page int  `json:"page"`
	Size int  `json:"size"`
	Sort Sort `json:"sort,omitempty"`
}

// NewPageable validates and creates a Pageable
func NewPageable(page, size int, sort ...Order) (Pageable, error) {
	if page < 0 {
		return Pageable{}, fmt.Errorf("%w: page index must not be less than zero", ErrInvalidArgument)
	}
	if size < 1 {
		return Pageable{}, fmt.Errorf("%w: page size must not be less than one", ErrInvalidArgument)
	}
	if page > maxPage(size) {
		return Pageable{}, fmt.Errorf("%w: page %d of size %d is past the maximum offset", ErrInvalidArgument, page, size)
	}
	return Pageable{Page: page, Size: size, Sort: Sort(sort)}, nil
}

// Offset returns the offset of the first item of the page
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// InRange returns true if the page and size are valid and the page ends
// within MaxOffset
func (p Pageable) InRange() bool {
	return p.Page >= 0 && p.Size >= 1 && p.Page <= maxPage(p.Size)
}

func maxPage(size int) int {
	if size > MaxOffset {
		return 0
	}
	return (MaxOffset - size) / size
}

// WithPage returns a copy of the pageable pointing at another page
func (p Pageable) WithPage(page int) Pageable {
	if page < 0 {
		page = 0
	}
	return Pageable{Page: page, Size: p.Size, Sort: p.Sort}
}

// First returns the pageable for the first page
func (p Pageable) First() Pageable {
	return p.WithPage(0)
}

// Next returns the pageable for the next page
func (p Pageable) Next() Pageable {
	return p.WithPage(p.Page + 1)
}

// Previous returns the pageable for the previous page, or the first page
func (p Pageable) Previous() Pageable {
	return p.WithPage(p.Page - 1)
}

// HasPrevious returns true if the pageable is past the first page
func (p Pageable) HasPrevious() bool {
	return p.Page > 0
}

// Enhance returns a copy of u with page, size and sort query parameters set
func (p Pageable) Enhance(u *url.URL) *url.URL {
	enhanced := *u
	values := u.Query()

	values.Set(ParamPage, strconv.Itoa(p.Page))
	values.Set(ParamSize, strconv.Itoa(p.Size))
	values.Del(ParamSort)
	for _, o := range p.Sort {
		dir := o.Direction
		if dir == "" {
			dir = Asc
		}
		values.Add(ParamSort, o.Property+","+string(dir))
	}

	enhanced.RawQuery = values.Encode()
	return &enhanced
}

// Query parameter names used for page requests
const (
	ParamPage = "page"
	ParamSize = "size"
	ParamSort = "sort"
)

// PageableResolver decodes page requests from query parameters
type PageableResolver struct {
	DefaultSize int
	MaxSize     int
	DefaultSort Sort
}

// NewPageableResolver creates a resolver, falling back to 20/2000 for
// non-positive sizes
func NewPageableResolver(defaultSize, maxSize int, defaultSort Sort) *PageableResolver {
	if defaultSize < 1 {
		defaultSize = 20
	}
	if maxSize < 1 {
		maxSize = 2000
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	return &PageableResolver{
		DefaultSize: defaultSize,
		MaxSize:     maxSize,
		DefaultSort: defaultSort,
	}
}

// Resolve decodes a Pageable. Malformed values fall back to defaults and
// pages past MaxOffset are clamped to the last reachable one.
func (r *PageableResolver) Resolve(values url.Values) Pageable {
	p := Pageable{Page: 0, Size: r.DefaultSize}

	if raw := values.Get(ParamPage); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page >= 0 {
			p.Page = page
		}
	}

	if raw := values.Get(ParamSize); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size >= 1 {
			p.Size = min(size, r.MaxSize)
		}
	}

	if p.Page > maxPage(p.Size) {
		p.Page = maxPage(p.Size)
	}

	p.Sort = parseSort(values[ParamSort])
	if !p.Sort.IsSorted() {
		p.Sort = r.DefaultSort
	}

	return p
}

// Enhance writes the pageable into a copy of u
func (r *PageableResolver) Enhance(u *url.URL, p Pageable) *url.URL {
	return p.Enhance(u)
}

// parseSort decodes sort parameters of the form prop[,prop...][,asc|desc]
func parseSort(params []string) Sort {
	var sort Sort
	for _, param := range params {
		elements := strings.Split(param, ",")
		dir := Asc
		if len(elements) > 1 {
			if d, ok := ParseDirection(elements[len(elements)-1]); ok {
				dir = d
				elements = elements[:len(elements)-1]
			}
		}
		for _, e := range elements {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			sort = append(sort, Order{Property: e, Direction: dir})
		}
	}
	return sort
}
