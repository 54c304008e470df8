package hal

import (
	"fmt"
	"net/url"

	"spexregister/search"
)

// Option configures an Assembler
type Option func(*assemblerOptions)

type assemblerOptions struct {
	baseURI               *url.URL
	forceFirstAndLastRels bool
}

// WithBaseURI makes links relative to base instead of the current request
func WithBaseURI(base *url.URL) Option {
	return func(o *assemblerOptions) {
		o.baseURI = base
	}
}

// WithForceFirstAndLastRels always renders first and last links, even for a
// single page
func WithForceFirstAndLastRels(force bool) Option {
	return func(o *assemblerOptions) {
		o.forceFirstAndLastRels = force
	}
}

// Assembler turns pages with facets into paged models with navigation links.
// It is bound to one request.
type Assembler[T any] struct {
	relation string
	current  *url.URL
	opts     assemblerOptions
}

// NewAssembler creates an assembler for the request at current. Content is
// embedded under relation.
func NewAssembler[T any](relation string, current *url.URL, opts ...Option) *Assembler[T] {
	a := &Assembler[T]{
		relation: relation,
		current:  current,
	}
	for _, opt := range opts {
		opt(&a.opts)
	}
	return a
}

// ToModel wraps every item as an entity model
func (a *Assembler[T]) ToModel(page *search.Page[T]) (*PagedModel[*EntityModel[T]], error) {
	return ToModelWith(a, page, identity[T])
}

// ToModelWithSelf wraps every item as an entity model and uses link as self
func (a *Assembler[T]) ToModelWithSelf(page *search.Page[T], link Link) (*PagedModel[*EntityModel[T]], error) {
	return ToModelWithLink(a, page, identity[T], link)
}

// ToModelWith converts every item with fn
func ToModelWith[T, R any](a *Assembler[T], page *search.Page[T], fn func(T) R) (*PagedModel[R], error) {
	return createModel(a, page, fn, nil)
}

// ToModelWithLink converts every item with fn and derives self and the
// navigation links from link
func ToModelWithLink[T, R any](a *Assembler[T], page *search.Page[T], fn func(T) R, link Link) (*PagedModel[R], error) {
	return createModel(a, page, fn, &link)
}

// ToEmptyModel renders a page without content, embedding an empty collection
// under relation. The page facets are kept.
func (a *Assembler[T]) ToEmptyModel(page *search.Page[T], relation string) (*PagedModel[*EntityModel[T]], error) {
	return a.toEmptyModel(page, relation, nil)
}

// ToEmptyModelWithLink is ToEmptyModel with an explicit self link
func (a *Assembler[T]) ToEmptyModelWithLink(page *search.Page[T], relation string, link Link) (*PagedModel[*EntityModel[T]], error) {
	return a.toEmptyModel(page, relation, &link)
}

func (a *Assembler[T]) toEmptyModel(page *search.Page[T], relation string, link *Link) (*PagedModel[*EntityModel[T]], error) {
	if a == nil {
		return nil, fmt.Errorf("%w: assembler must not be nil", ErrInvalidArgument)
	}
	if page == nil {
		return nil, fmt.Errorf("%w: page must not be nil", ErrInvalidArgument)
	}
	if page.HasContent() {
		return nil, fmt.Errorf("%w: page must not have any content", ErrInvalidArgument)
	}
	if relation == "" {
		return nil, fmt.Errorf("%w: relation must not be empty", ErrInvalidArgument)
	}

	base, err := a.baseURI(link)
	if err != nil {
		return nil, err
	}

	metadata, err := asPageMetadata(page)
	if err != nil {
		return nil, err
	}

	model := NewPagedModel(relation, []*EntityModel[T]{}, &metadata, page.Facets)
	model.embedEmpty = true

	return addPaginationLinks(model, page, base, link, a.opts.forceFirstAndLastRels), nil
}

func createModel[T, R any](a *Assembler[T], page *search.Page[T], fn func(T) R, link *Link) (*PagedModel[R], error) {
	if a == nil {
		return nil, fmt.Errorf("%w: assembler must not be nil", ErrInvalidArgument)
	}
	if page == nil {
		return nil, fmt.Errorf("%w: page must not be nil", ErrInvalidArgument)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: item assembler must not be nil", ErrInvalidArgument)
	}

	base, err := a.baseURI(link)
	if err != nil {
		return nil, err
	}

	metadata, err := asPageMetadata(page)
	if err != nil {
		return nil, err
	}

	resources := make([]R, 0, page.NumberOfElements())
	for _, item := range page.Content {
		resources = append(resources, fn(item))
	}

	model := NewPagedModel(a.relation, resources, &metadata, page.Facets)

	return addPaginationLinks(model, page, base, link, a.opts.forceFirstAndLastRels), nil
}

func addPaginationLinks[T, R any](model *PagedModel[R], page *search.Page[T], base *url.URL, link *Link, force bool) *PagedModel[R] {
	navigable := page.HasPrevious() || page.HasNext()

	if navigable || force {
		model.Add(createLink(base, page.Pageable.First(), RelFirst))
	}

	if page.HasPrevious() {
		model.Add(createLink(base, page.PreviousPageable(), RelPrev))
	}

	if link != nil {
		model.Add(link.WithSelfRel())
	} else {
		model.Add(createLink(base, page.Pageable, RelSelf))
	}

	if page.HasNext() {
		model.Add(createLink(base, page.NextPageable(), RelNext))
	}

	if navigable || force {
		last := max(page.TotalPages()-1, 0)
		model.Add(createLink(base, page.Pageable.WithPage(last), RelLast))
	}

	return model
}

// baseURI resolves the URI navigation links are built against: the explicit
// link, the configured base URI or the current request, in that order
func (a *Assembler[T]) baseURI(link *Link) (*url.URL, error) {
	if link != nil {
		if link.Href == "" {
			return nil, fmt.Errorf("%w: link must not be empty", ErrInvalidArgument)
		}
		u, err := url.Parse(link.Href)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid link %q: %v", ErrInvalidArgument, link.Href, err)
		}
		return u, nil
	}
	if a.opts.baseURI != nil {
		return a.opts.baseURI, nil
	}
	if a.current != nil {
		return a.current, nil
	}
	return nil, fmt.Errorf("%w: no base URI or current request", ErrInvalidArgument)
}

func createLink(base *url.URL, p search.Pageable, rel LinkRelation) Link {
	return NewLink(p.Enhance(base).String(), rel)
}

func asPageMetadata[T any](page *search.Page[T]) (PageMetadata, error) {
	return NewPageMetadataWithTotalPages(
		int64(page.Size()),
		int64(page.Number()),
		page.Total,
		int64(page.TotalPages()),
	)
}

func identity[T any](item T) *EntityModel[T] {
	return Wrap(item)
}
