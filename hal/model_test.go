package hal

import (
	"testing"

	"spexregister/search"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageMetadata(t *testing.T) {
	m, err := NewPageMetadata(10, 0, 95)
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.TotalPages)

	m, err = NewPageMetadata(10, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.TotalPages)

	m, err = NewPageMetadata(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.TotalPages)
}

func TestNewPageMetadataRejectsNegatives(t *testing.T) {
	cases := []struct {
		name                            string
		size, number, total, totalPages int64
	}{
		{"size", -1, 0, 0, 0},
		{"number", 10, -1, 0, 0},
		{"total", 10, 0, -1, 0},
		{"total pages", 10, 0, 0, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPageMetadataWithTotalPages(tc.size, tc.number, tc.total, tc.totalPages)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestPagedModelJSONShape(t *testing.T) {
	metadata, err := NewPageMetadata(2, 0, 2)
	require.NoError(t, err)

	facets := []search.Facet{{
		Name:   "tags.name",
		Values: map[string]int64{"Orkester": 4, "Kör": 2},
	}}
	model := NewPagedModel("spexare", []*EntityModel[spexare]{
		Wrap(spexare{ID: 1, NickName: "Kalle"}, NewLink("http://localhost/api/v1/spexare/1", RelSelf)),
		Wrap(spexare{ID: 2}),
	}, &metadata, facets)
	model.Add(NewLink("http://localhost/api/v1/spexare?page=0&size=2", RelSelf))

	data, err := sonic.Marshal(model)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))

	embedded := decoded["_embedded"].(map[string]any)["spexare"].([]any)
	require.Len(t, embedded, 2)
	first := embedded[0].(map[string]any)
	assert.Equal(t, "Kalle", first["nickName"])
	assert.Equal(t, "http://localhost/api/v1/spexare/1",
		first["_links"].(map[string]any)["self"].(map[string]any)["href"])
	assert.NotContains(t, embedded[1].(map[string]any), "_links")

	page := decoded["page"].(map[string]any)
	assert.EqualValues(t, 2, page["size"])
	assert.EqualValues(t, 2, page["totalElements"])
	assert.EqualValues(t, 1, page["totalPages"])
	assert.EqualValues(t, 0, page["number"])

	assert.Contains(t, decoded["_links"].(map[string]any), "self")

	decodedFacets := decoded["_facets"].([]any)
	require.Len(t, decodedFacets, 1)
	facet := decodedFacets[0].(map[string]any)
	assert.Equal(t, "tags.name", facet["name"])
	assert.EqualValues(t, 4, facet["values"].(map[string]any)["Orkester"])
	assert.EqualValues(t, 2, facet["values"].(map[string]any)["Kör"])
}

func TestPagedModelWithoutContentOmitsEmbedded(t *testing.T) {
	metadata, err := NewPageMetadata(20, 0, 0)
	require.NoError(t, err)

	data, err := sonic.Marshal(NewPagedModel[spexare]("spexare", nil, &metadata, nil))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "_embedded")
	assert.Equal(t, []any{}, decoded["_facets"])
}

func TestEmptyModelIsFresh(t *testing.T) {
	a := Empty[spexare]()
	a.Add(NewLink("http://localhost", RelSelf))

	b := Empty[spexare]()
	assert.Empty(t, b.Links)
	assert.Nil(t, b.Metadata)
	assert.NotNil(t, b.Content)
}

func TestEntityModelNonObjectContent(t *testing.T) {
	data, err := sonic.Marshal(Wrap("plain", NewLink("http://localhost/x", RelSelf)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"plain","_links":{"self":{"href":"http://localhost/x"}}}`, string(data))
}

func TestLinksRenderRepeatedRelationAsArray(t *testing.T) {
	links := Links{
		NewLink("http://a", RelSelf),
		NewLink("http://b", "item"),
		NewLink("http://c", "item"),
	}
	data, err := links.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"self":{"href":"http://a"},"item":[{"href":"http://b"},{"href":"http://c"}]}`, string(data))
}
