package search

// Facet summarizes the value counts of one field over a result set
type Facet struct {
	Name   string           `json:"name"`
	Values map[string]int64 `json:"values"`
}
