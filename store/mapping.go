package store

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Free text fields matched by the free text part of a query
var FreeTextFields = []string{
	"firstName",
	"lastName",
	"nickName",
	"socialSecurityNumber",
	"graduation",
	"comment",
	"activities.taskActivities.actors.role",
	"addresses.streetAddress",
	"addresses.postalCode",
	"addresses.city",
	"addresses.country",
	"addresses.phone",
	"addresses.phoneMobile",
	"addresses.emailAddress",
}

// Aggregations are the fields a query can filter on. Every one of them is
// returned as a facet.
var Aggregations = []string{
	"activities.spexActivity.spex.year",
	"activities.spexActivity.spex.details.title",
	"activities.spexActivity.spex.details.category.name",
	"activities.taskActivities.task.name",
	"activities.taskActivities.task.category.name",
	"activities.taskActivities.actors.vocal.id",
	"tags.name",
	"memberships.year",
	"memberships.type.id",
	"consents.value",
	"consents.type.id",
	"toggles.value",
	"toggles.type.id",
}

// ScoreProperty sorts by relevance
const ScoreProperty = "score"

const sortSuffix = "_sort"

// sortable maps a sortable property to the keyword field holding its sort key
var sortable = map[string]string{
	"firstName": "firstName" + sortSuffix,
	"lastName":  "lastName" + sortSuffix,
	"nickName":  "nickName" + sortSuffix,
}

// IsSortable returns true if results can be ordered by property
func IsSortable(property string) bool {
	if property == ScoreProperty {
		return true
	}
	_, ok := sortable[property]
	return ok
}

func isAggregation(name string) bool {
	for _, a := range Aggregations {
		if a == name {
			return true
		}
	}
	return false
}

// buildMapping creates a static mapping: only the declared fields are
// indexed, everything else in a document is ignored
func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	root := bleve.NewDocumentStaticMapping()

	for _, path := range FreeTextFields {
		text := bleve.NewTextFieldMapping()
		text.Store = false
		text.IncludeTermVectors = false
		documentAt(root, path).AddFieldMappingsAt(leaf(path), text)
	}

	for _, path := range Aggregations {
		keyword := bleve.NewKeywordFieldMapping()
		keyword.Store = false
		documentAt(root, path).AddFieldMappingsAt(leaf(path), keyword)
	}

	for property, field := range sortable {
		keyword := bleve.NewKeywordFieldMapping()
		keyword.Name = field
		keyword.Store = false
		keyword.IncludeInAll = false
		documentAt(root, property).AddFieldMappingsAt(leaf(property), keyword)
	}

	im.DefaultMapping = root
	if err := validateSortTable(sortable); err != nil {
		return nil, err
	}
	if err := im.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index mapping: %w", err)
	}
	return im, nil
}

// validateSortTable checks that every sortable property is a top level free
// text field and that its sort key follows the naming of the mapping
func validateSortTable(table map[string]string) error {
	for property, field := range table {
		if property == ScoreProperty {
			return fmt.Errorf("sortable property %q is reserved", property)
		}
		if strings.Contains(property, ".") {
			return fmt.Errorf("sortable property %q must be a top level field", property)
		}
		found := false
		for _, f := range FreeTextFields {
			if f == property {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("sortable property %q is not an indexed field", property)
		}
		if field != property+sortSuffix {
			return fmt.Errorf("sortable property %q maps to unknown field %q", property, field)
		}
	}
	return nil
}

// documentAt returns the (possibly new) sub document mapping holding the
// last element of path
func documentAt(root *mapping.DocumentMapping, path string) *mapping.DocumentMapping {
	parts := strings.Split(path, ".")
	current := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current.Properties[part]
		if !ok {
			next = bleve.NewDocumentStaticMapping()
			current.AddSubDocumentMapping(part, next)
		}
		current = next
	}
	return current
}

func leaf(path string) string {
	return path[strings.LastIndex(path, ".")+1:]
}
