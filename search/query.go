package search

import (
	"net/url"
	"strings"
)

// Query syntax: <free text>:<ignored>:<aggregation1>:<value1>:<aggregation2>:<value2>
// Example: colgate:x:tags.name:detaljen
const querySeparator = ":"

// Aggregation is a single field/value constraint extracted from a query string
type Aggregation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Query is the structured form of a raw search string
type Query struct {
	FreeText     string        `json:"freeText,omitempty"`
	Aggregations []Aggregation `json:"aggregations"`
}

// ParseQuery parses a raw query string. It never fails: input that does not
// fit the grammar degrades to free text or to an empty query.
func ParseQuery(raw string) Query {
	if strings.TrimSpace(raw) == "" {
		return Query{Aggregations: []Aggregation{}}
	}

	parts := splitQuery(raw)
	if len(parts) == 0 {
		return Query{FreeText: strings.TrimSpace(raw), Aggregations: []Aggregation{}}
	}

	q := Query{
		FreeText:     strings.TrimSpace(parts[0]),
		Aggregations: []Aggregation{},
	}

	// Pairs start at index 2, the token at index 1 is not part of any pair.
	for i := 2; i+1 < len(parts); i += 2 {
		q.Aggregations = append(q.Aggregations, Aggregation{
			Name:  decodeToken(parts[i]),
			Value: decodeToken(parts[i+1]),
		})
	}

	return q
}

// String encodes the query back into the raw grammar. Separators in the free
// text are written as spaces, so the aggregations keep their positions and
// ParseQuery(q.String()) returns them unchanged.
func (q Query) String() string {
	freeText := strings.ReplaceAll(q.FreeText, querySeparator, " ")
	if len(q.Aggregations) == 0 {
		return freeText
	}

	var b strings.Builder
	b.WriteString(freeText)
	b.WriteString(querySeparator)
	for _, a := range q.Aggregations {
		b.WriteString(querySeparator)
		b.WriteString(url.QueryEscape(a.Name))
		b.WriteString(querySeparator)
		b.WriteString(url.QueryEscape(a.Value))
	}
	return b.String()
}

// IsEmpty returns true if the query neither has free text nor aggregations
func (q Query) IsEmpty() bool {
	return q.FreeText == "" && len(q.Aggregations) == 0
}

// splitQuery splits on the separator and drops trailing empty parts
func splitQuery(raw string) []string {
	parts := strings.Split(raw, querySeparator)
	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}
	return parts[:end]
}

func decodeToken(token string) string {
	decoded, err := url.QueryUnescape(token)
	if err != nil {
		return token
	}
	return decoded
}
