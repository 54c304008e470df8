package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"spexregister/models"
	"spexregister/search"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	blevesearch "github.com/blevesearch/bleve/v2/search"
)

var (
	// ErrNotFound is returned when a spexare is not in the index
	ErrNotFound = errors.New("spexare not found")
	// ErrUnknownAggregation is returned when a query filters on a field that is not an aggregation
	ErrUnknownAggregation = errors.New("unknown aggregation")
)

const (
	indexName        = "spexare"
	sourcePrefix     = "source:"
	defaultFacetSize = 100
	idPageSize       = 10000
)

// Store is the spexare search index. Source documents are kept in the
// index's internal storage next to the indexed fields.
type Store struct {
	index     bleve.Index
	facetSize int
	logger    *zap.Logger

	// serializes batches so a document and its source are written together
	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithFacetSize sets the maximum number of terms returned per facet
func WithFacetSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.facetSize = size
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func newStore(opts []Option) *Store {
	s := &Store{
		facetSize: defaultFacetSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the index under dataDir, creating it if it does not exist.
// An index that cannot be opened is removed and recreated empty.
func Open(dataDir string, opts ...Option) (*Store, error) {
	s := newStore(opts)

	im, err := buildMapping()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	indexPath := filepath.Join(dataDir, indexName)

	if _, statErr := os.Stat(indexPath); statErr == nil {
		index, err := bleve.Open(indexPath)
		if err == nil {
			s.index = index
			return s, nil
		}
		s.logger.Warn("Failed to open index, recreating",
			zap.String("path", indexPath),
			zap.Error(err))
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove index: %w", err)
		}
	}

	index, err := bleve.New(indexPath, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	s.index = index
	return s, nil
}

// NewMemOnly creates an index that lives in memory only
func NewMemOnly(opts ...Option) (*Store, error) {
	s := newStore(opts)

	im, err := buildMapping()
	if err != nil {
		return nil, err
	}

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	s.index = index
	return s, nil
}

// Mapping returns the index mapping
func (s *Store) Mapping() mapping.IndexMapping {
	return s.index.Mapping()
}

// Close closes the index
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Index adds or replaces spexare in one batch
func (s *Store) Index(ctx context.Context, spexare ...models.Spexare) error {
	if len(spexare) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for i := range spexare {
		if err := ctx.Err(); err != nil {
			return err
		}

		sp := &spexare[i]
		id := documentID(sp.ID)

		source, err := sonic.Marshal(sp)
		if err != nil {
			return fmt.Errorf("failed to serialize spexare %s: %w", id, err)
		}

		if err := batch.Index(id, indexDocument(sp)); err != nil {
			return fmt.Errorf("failed to index spexare %s: %w", id, err)
		}
		batch.SetInternal(sourceKey(id), source)
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Delete removes spexare from the index. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		docID := documentID(id)
		batch.Delete(docID)
		batch.DeleteInternal(sourceKey(docID))
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Get returns a single spexare
func (s *Store) Get(id int64) (*models.Spexare, error) {
	return s.source(documentID(id))
}

// DocCount returns the number of indexed spexare
func (s *Store) DocCount() (uint64, error) {
	return s.index.DocCount()
}

// IDs returns the ids of every indexed spexare
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	offset := 0

	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), idPageSize, offset, false)
		req.SortBy([]string{"_id"})

		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		for _, hit := range res.Hits {
			id, err := strconv.ParseInt(hit.ID, 10, 64)
			if err != nil {
				s.logger.Warn("Skipping document with non numeric id", zap.String("id", hit.ID))
				continue
			}
			ids = append(ids, id)
		}

		if len(res.Hits) < idPageSize {
			break
		}
		offset += idPageSize
	}

	return ids, nil
}

// Search runs a structured query and returns the requested page together
// with a facet for every aggregation
func (s *Store) Search(ctx context.Context, q search.Query, p search.Pageable) (*search.Page[models.Spexare], error) {
	if !p.InRange() {
		return nil, fmt.Errorf("%w: page %d of size %d is out of range", search.ErrInvalidArgument, p.Page, p.Size)
	}

	bq, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bq, p.Size, p.Offset(), false)
	req.SortByCustom(sortOrder(p.Sort))
	for _, name := range Aggregations {
		req.AddFacet(name, bleve.NewFacetRequest(name, s.facetSize))
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	content := make([]models.Spexare, 0, len(res.Hits))
	for _, hit := range res.Hits {
		sp, err := s.source(hit.ID)
		if err != nil {
			s.logger.Warn("Skipping hit without source", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		content = append(content, *sp)
	}

	return search.NewPage(content, p, int64(res.Total), facets(res.Facets)), nil
}

func (s *Store) source(id string) (*models.Spexare, error) {
	data, err := s.index.GetInternal(sourceKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read spexare %s: %w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var sp models.Spexare
	if err := sonic.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("failed to decode spexare %s: %w", id, err)
	}
	return &sp, nil
}

// buildQuery requires the free text to match any free text field and every
// aggregation to match exactly
func buildQuery(q search.Query) (query.Query, error) {
	var must []query.Query

	if q.FreeText != "" {
		fields := make([]query.Query, 0, len(FreeTextFields))
		for _, field := range FreeTextFields {
			match := bleve.NewMatchQuery(q.FreeText)
			match.SetField(field)
			fields = append(fields, match)
		}
		must = append(must, bleve.NewDisjunctionQuery(fields...))
	}

	for _, a := range q.Aggregations {
		if !isAggregation(a.Name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAggregation, a.Name)
		}
		term := bleve.NewTermQuery(a.Value)
		term.SetField(a.Name)
		must = append(must, term)
	}

	if len(must) == 0 {
		return bleve.NewMatchAllQuery(), nil
	}
	return bleve.NewConjunctionQuery(must...), nil
}

// sortOrder translates a sort into index sort keys. Properties that cannot
// be sorted on are skipped; without any sortable property results are
// ordered by relevance. The document id breaks ties so paging is stable.
func sortOrder(sort search.Sort) blevesearch.SortOrder {
	order := make(blevesearch.SortOrder, 0, len(sort)+1)
	for _, o := range sort {
		if o.Property == ScoreProperty {
			order = append(order, &blevesearch.SortScore{Desc: !o.IsAscending()})
			continue
		}
		field, ok := sortable[o.Property]
		if !ok {
			continue
		}
		order = append(order, &blevesearch.SortField{
			Field:   field,
			Desc:    !o.IsAscending(),
			Type:    blevesearch.SortFieldAuto,
			Missing: blevesearch.SortFieldMissingLast,
		})
	}
	if len(order) == 0 {
		order = append(order, &blevesearch.SortScore{Desc: true})
	}
	return append(order, &blevesearch.SortDocID{})
}

func facets(results blevesearch.FacetResults) []search.Facet {
	out := make([]search.Facet, 0, len(Aggregations))
	for _, name := range Aggregations {
		facet := search.Facet{Name: name, Values: map[string]int64{}}
		if result, ok := results[name]; ok && result != nil && result.Terms != nil {
			for _, term := range result.Terms.Terms() {
				facet.Values[term.Term] = int64(term.Count)
			}
		}
		out = append(out, facet)
	}
	return out
}

func documentID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func sourceKey(id string) []byte {
	return []byte(sourcePrefix + id)
}
