package store

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"spexregister/models"
	"spexregister/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() []models.Spexare {
	return []models.Spexare{
		{
			ID:        1,
			FirstName: "Kalle",
			LastName:  "Anka",
			NickName:  "Kalle",
			Activities: []models.Activity{
				{
					SpexActivity: &models.SpexActivity{Spex: models.Spex{
						Year:    "2019",
						Details: models.SpexDetails{Title: "Colgate", Category: models.Category{Name: "Spex"}},
					}},
					TaskActivities: []models.TaskActivity{{
						Task:   models.Task{Name: "Skådespelare", Category: models.Category{Name: "Scen"}},
						Actors: []models.Actor{{Role: "Kungen", Vocal: &models.Type{ID: "B1"}}},
					}},
				},
			},
			Tags:        []models.Tag{{Name: "Orkester"}},
			Memberships: []models.Membership{{Year: "2020", Type: models.Type{ID: "FGV"}}},
			Consents:    []models.Consent{{Value: true, Type: models.Type{ID: "PUBLISHING"}}},
		},
		{
			ID:          2,
			FirstName:   "Kajsa",
			LastName:    "Anka",
			NickName:    "Kajsan",
			Tags:        []models.Tag{{Name: "Orkester"}, {Name: "Kör"}},
			Memberships: []models.Membership{{Year: "2020", Type: models.Type{ID: "FGV"}}},
			Consents:    []models.Consent{{Value: false, Type: models.Type{ID: "PUBLISHING"}}},
		},
		{
			ID:        3,
			FirstName: "Musse",
			LastName:  "Pigg",
			Tags:      []models.Tag{{Name: "Kör"}},
			Addresses: []models.Address{{City: "Göteborg", EmailAddress: "musse@example.org"}},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Index(context.Background(), fixtures()...))
	return s
}

func ids(page *search.Page[models.Spexare]) []int64 {
	out := make([]int64, 0, len(page.Content))
	for _, sp := range page.Content {
		out = append(out, sp.ID)
	}
	return out
}

func facetValues(t *testing.T, page *search.Page[models.Spexare], name string) map[string]int64 {
	t.Helper()
	for _, f := range page.Facets {
		if f.Name == name {
			return f.Values
		}
	}
	t.Fatalf("facet %s not found", name)
	return nil
}

func firstPage(size int, sort ...search.Order) search.Pageable {
	return search.Pageable{Page: 0, Size: size, Sort: sort}
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.ParseQuery(""), firstPage(10))
	require.NoError(t, err)

	assert.Equal(t, int64(3), page.Total)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids(page))
	assert.Len(t, page.Facets, len(Aggregations))
	assert.Equal(t, map[string]int64{"Orkester": 2, "Kör": 2}, facetValues(t, page, "tags.name"))
	assert.Equal(t, map[string]int64{"2019": 1}, facetValues(t, page, "activities.spexActivity.spex.year"))
	assert.Equal(t, map[string]int64{"true": 1, "false": 1}, facetValues(t, page, "consents.value"))
	assert.Empty(t, facetValues(t, page, "toggles.type.id"))
}

func TestSearchFreeText(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.ParseQuery("anka"), firstPage(10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids(page))

	page, err = s.Search(context.Background(), search.ParseQuery("göteborg"), firstPage(10))
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(page))

	page, err = s.Search(context.Background(), search.ParseQuery("kungen"), firstPage(10))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(page))
}

func TestSearchAggregations(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name     string
		query    string
		expected []int64
	}{
		{"tag", "::tags.name:K%C3%B6r", []int64{2, 3}},
		{"free text and tag", "anka::tags.name:K%C3%B6r", []int64{2}},
		{"boolean", "::consents.value:true", []int64{1}},
		{"nested", "::activities.taskActivities.actors.vocal.id:B1", []int64{1}},
		{"several", "::tags.name:Orkester:memberships.year:2020", []int64{1, 2}},
		{"no match", "::memberships.year:1999", []int64{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := s.Search(context.Background(), search.ParseQuery(tc.query), firstPage(10))
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, ids(page))
		})
	}
}

func TestSearchFacetsFollowMatches(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.ParseQuery("::tags.name:Orkester"), firstPage(10))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Orkester": 2, "Kör": 1}, facetValues(t, page, "tags.name"))
}

func TestSearchUnknownAggregation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Search(context.Background(), search.ParseQuery("::shoeSize:42"), firstPage(10))
	assert.ErrorIs(t, err, ErrUnknownAggregation)
}

func TestSearchSort(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.Query{}, firstPage(10, search.Order{Property: "firstName", Direction: search.Asc}))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids(page))

	page, err = s.Search(context.Background(), search.Query{}, firstPage(10, search.Order{Property: "firstName", Direction: search.Desc}))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(page))

	page, err = s.Search(context.Background(), search.Query{}, firstPage(10,
		search.Order{Property: "lastName", Direction: search.Asc},
		search.Order{Property: "firstName", Direction: search.Desc}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(page))
}

func TestSearchSortMissingLast(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.Query{}, firstPage(10, search.Order{Property: "nickName", Direction: search.Asc}))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids(page))
}

func TestSearchUnsortablePropertyIsIgnored(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Search(context.Background(), search.Query{}, firstPage(10, search.Order{Property: "comment", Direction: search.Asc}))
	require.NoError(t, err)
	assert.Len(t, page.Content, 3)
}

func TestSearchPaging(t *testing.T) {
	s := newTestStore(t)
	byFirstName := search.Order{Property: "firstName", Direction: search.Asc}

	page, err := s.Search(context.Background(), search.Query{}, search.Pageable{Page: 0, Size: 2, Sort: search.Sort{byFirstName}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page))
	assert.Equal(t, int64(3), page.Total)
	assert.True(t, page.HasNext())

	page, err = s.Search(context.Background(), search.Query{}, search.Pageable{Page: 1, Size: 2, Sort: search.Sort{byFirstName}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(page))
	assert.False(t, page.HasNext())
	assert.True(t, page.HasPrevious())
}

func TestSearchRejectsOutOfRangePage(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []search.Pageable{
		{Page: math.MaxInt / 10, Size: 20},
		{Page: math.MaxInt, Size: 1},
		{Page: -1, Size: 10},
		{Page: 0, Size: 0},
	} {
		page, err := s.Search(context.Background(), search.Query{}, p)
		assert.ErrorIs(t, err, search.ErrInvalidArgument, "page %d size %d", p.Page, p.Size)
		assert.Nil(t, page)
	}
}

func TestSearchLastReachablePageIsEmpty(t *testing.T) {
	s := newTestStore(t)

	p := search.Pageable{Page: (search.MaxOffset - 20) / 20, Size: 20}
	page, err := s.Search(context.Background(), search.Query{}, p)
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(3), page.Total)
	assert.False(t, page.HasNext())
}

func TestGet(t *testing.T) {
	s := newTestStore(t)

	sp, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Kalle", sp.FirstName)
	require.Len(t, sp.Activities, 1)
	assert.Equal(t, "Colgate", sp.Activities[0].SpexActivity.Spex.Details.Title)
	assert.Equal(t, "B1", sp.Activities[0].TaskActivities[0].Actors[0].Vocal.ID)

	_, err = s.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndexReplacesDocument(t *testing.T) {
	s := newTestStore(t)

	updated := fixtures()[2]
	updated.LastName = "Mus"
	require.NoError(t, s.Index(context.Background(), updated))

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	page, err := s.Search(context.Background(), search.ParseQuery("pigg"), firstPage(10))
	require.NoError(t, err)
	assert.Empty(t, page.Content)

	sp, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "Mus", sp.LastName)
}

func TestDeleteAndIDs(t *testing.T) {
	s := newTestStore(t)

	all, err := s.IDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, all)

	require.NoError(t, s.Delete(context.Background(), 2, 99))

	all, err = s.IDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, all)

	_, err = s.Get(2)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestOpenPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Index(context.Background(), fixtures()...))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	sp, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "Musse", sp.FirstName)
}

func TestValidateSortTable(t *testing.T) {
	assert.NoError(t, validateSortTable(sortable))
	assert.Error(t, validateSortTable(map[string]string{"score": "score_sort"}))
	assert.Error(t, validateSortTable(map[string]string{"addresses.city": "addresses.city_sort"}))
	assert.Error(t, validateSortTable(map[string]string{"birthDate": "birthDate_sort"}))
	assert.Error(t, validateSortTable(map[string]string{"firstName": "lastName_sort"}))

	assert.True(t, IsSortable("score"))
	assert.True(t, IsSortable("lastName"))
	assert.False(t, IsSortable("comment"))
}

// TestConcurrentReadsAndWrites checks that searches running next to batches
// neither deadlock nor fail
func TestConcurrentReadsAndWrites(t *testing.T) {
	s := newTestStore(t)

	var opsCompleted int64
	done := make(chan bool)

	for range 10 {
		go func() {
			for range 20 {
				if _, err := s.Search(context.Background(), search.ParseQuery("anka"), firstPage(10)); err != nil {
					t.Errorf("Failed to search: %v", err)
				}
				atomic.AddInt64(&opsCompleted, 1)
			}
			done <- true
		}()
	}

	for writer := range 5 {
		go func() {
			for j := range 10 {
				sp := models.Spexare{
					ID:        int64(100 + writer*10 + j),
					FirstName: fmt.Sprintf("Writer%d", writer),
					LastName:  "Anka",
				}
				if err := s.Index(context.Background(), sp); err != nil {
					t.Errorf("Failed to index: %v", err)
				}
				if j%2 == 0 {
					if err := s.Delete(context.Background(), sp.ID); err != nil {
						t.Errorf("Failed to delete: %v", err)
					}
				}
				atomic.AddInt64(&opsCompleted, 1)
			}
			done <- true
		}()
	}

	timeout := time.After(30 * time.Second)
	for range 15 {
		select {
		case <-done:
		case <-timeout:
			t.Fatalf("Test timed out - possible deadlock detected. Operations completed: %d", atomic.LoadInt64(&opsCompleted))
		}
	}

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3+25), count)
}
