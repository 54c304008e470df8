package hal

import (
	"bytes"
	"fmt"

	"spexregister/search"

	"github.com/bytedance/sonic"
)

// ErrInvalidArgument is returned when an assembler argument is missing or invalid
var ErrInvalidArgument = search.ErrInvalidArgument

// PageMetadata describes the position of a page in a result set
type PageMetadata struct {
	Size          int64 `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int64 `json:"totalPages"`
	Number        int64 `json:"number"`
}

// NewPageMetadata creates metadata, deriving the total pages from size and total
func NewPageMetadata(size, number, totalElements int64) (PageMetadata, error) {
	var totalPages int64
	if size > 0 {
		totalPages = (totalElements + size - 1) / size
	}
	return NewPageMetadataWithTotalPages(size, number, totalElements, totalPages)
}

// NewPageMetadataWithTotalPages creates metadata from explicit values
func NewPageMetadataWithTotalPages(size, number, totalElements, totalPages int64) (PageMetadata, error) {
	switch {
	case size < 0:
		return PageMetadata{}, fmt.Errorf("%w: size must not be negative", ErrInvalidArgument)
	case number < 0:
		return PageMetadata{}, fmt.Errorf("%w: number must not be negative", ErrInvalidArgument)
	case totalElements < 0:
		return PageMetadata{}, fmt.Errorf("%w: total elements must not be negative", ErrInvalidArgument)
	case totalPages < 0:
		return PageMetadata{}, fmt.Errorf("%w: total pages must not be negative", ErrInvalidArgument)
	}

	return PageMetadata{
		Size:          size,
		Number:        number,
		TotalElements: totalElements,
		TotalPages:    totalPages,
	}, nil
}

func (m PageMetadata) String() string {
	return fmt.Sprintf("Metadata { number: %d, total pages: %d, total elements: %d, size: %d }",
		m.Number, m.TotalPages, m.TotalElements, m.Size)
}

// EntityModel wraps a single item with its links. The item's fields are
// rendered inline next to _links.
type EntityModel[T any] struct {
	Content T
	Links   Links
}

// Wrap creates an entity model
func Wrap[T any](content T, links ...Link) *EntityModel[T] {
	return &EntityModel[T]{Content: content, Links: Links(links)}
}

// Add appends links to the entity
func (e *EntityModel[T]) Add(links ...Link) *EntityModel[T] {
	e.Links = append(e.Links, links...)
	return e
}

func (e EntityModel[T]) MarshalJSON() ([]byte, error) {
	content, err := sonic.Marshal(e.Content)
	if err != nil {
		return nil, err
	}

	content = bytes.TrimSpace(content)
	if len(content) < 2 || content[0] != '{' {
		// not an object, nest it
		return sonic.Marshal(struct {
			Content any   `json:"content"`
			Links   Links `json:"_links,omitempty"`
		}{Content: e.Content, Links: e.Links})
	}
	if len(e.Links) == 0 {
		return content, nil
	}

	links, err := e.Links.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(content[:len(content)-1])
	if len(bytes.TrimSpace(content[1:len(content)-1])) > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"_links":`)
	buf.Write(links)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PagedModel is a page of items with metadata, facets and navigation links
type PagedModel[T any] struct {
	Content  []T
	Metadata *PageMetadata
	Facets   []search.Facet
	Links    Links

	relation   string
	embedEmpty bool
}

// Empty returns a new empty model without metadata
func Empty[T any]() *PagedModel[T] {
	return &PagedModel[T]{
		Content: []T{},
		Facets:  []search.Facet{},
	}
}

// NewPagedModel creates a model whose content is embedded under relation
func NewPagedModel[T any](relation string, content []T, metadata *PageMetadata, facets []search.Facet) *PagedModel[T] {
	if content == nil {
		content = []T{}
	}
	if facets == nil {
		facets = []search.Facet{}
	}
	return &PagedModel[T]{
		Content:  content,
		Metadata: metadata,
		Facets:   facets,
		relation: relation,
	}
}

// Relation returns the name the content is embedded under
func (m *PagedModel[T]) Relation() string {
	return m.relation
}

// Add appends links to the model
func (m *PagedModel[T]) Add(links ...Link) *PagedModel[T] {
	m.Links = append(m.Links, links...)
	return m
}

// NextLink returns the next link if present
func (m *PagedModel[T]) NextLink() (Link, bool) {
	return m.Links.Get(RelNext)
}

// PreviousLink returns the prev link if present
func (m *PagedModel[T]) PreviousLink() (Link, bool) {
	return m.Links.Get(RelPrev)
}

type pagedModelJSON struct {
	Embedded map[string]any `json:"_embedded,omitempty"`
	Links    Links          `json:"_links,omitempty"`
	Page     *PageMetadata  `json:"page,omitempty"`
	Facets   []search.Facet `json:"_facets"`
}

func (m PagedModel[T]) MarshalJSON() ([]byte, error) {
	out := pagedModelJSON{
		Links:  m.Links,
		Page:   m.Metadata,
		Facets: m.Facets,
	}
	if out.Facets == nil {
		out.Facets = []search.Facet{}
	}

	if m.relation != "" && (len(m.Content) > 0 || m.embedEmpty) {
		content := m.Content
		if content == nil {
			content = []T{}
		}
		out.Embedded = map[string]any{m.relation: content}
	}

	return sonic.Marshal(out)
}

func (m *PagedModel[T]) String() string {
	return fmt.Sprintf("PagedModel { content: %d items, metadata: %v, links: %v, facets: %v }",
		len(m.Content), m.Metadata, m.Links, m.Facets)
}
