package hal

import (
	"bytes"

	"github.com/bytedance/sonic"
)

// LinkRelation is the relation type of a link
type LinkRelation string

// IANA link relations used for navigation
const (
	RelSelf  LinkRelation = "self"
	RelFirst LinkRelation = "first"
	RelPrev  LinkRelation = "prev"
	RelNext  LinkRelation = "next"
	RelLast  LinkRelation = "last"
)

// Link is a hypermedia link
type Link struct {
	Href string       `json:"href"`
	Rel  LinkRelation `json:"-"`
}

// NewLink creates a link
func NewLink(href string, rel LinkRelation) Link {
	return Link{Href: href, Rel: rel}
}

// WithSelfRel returns a copy of the link with the self relation
func (l Link) WithSelfRel() Link {
	return l.WithRel(RelSelf)
}

// WithRel returns a copy of the link with another relation
func (l Link) WithRel(rel LinkRelation) Link {
	return Link{Href: l.Href, Rel: rel}
}

// Links is an ordered set of links
type Links []Link

// Get returns the first link with the given relation
func (ls Links) Get(rel LinkRelation) (Link, bool) {
	for _, l := range ls {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

// Has returns true if a link with the given relation exists
func (ls Links) Has(rel LinkRelation) bool {
	_, ok := ls.Get(rel)
	return ok
}

// Rels returns the relations in order of appearance
func (ls Links) Rels() []LinkRelation {
	rels := make([]LinkRelation, 0, len(ls))
	seen := make(map[LinkRelation]bool, len(ls))
	for _, l := range ls {
		if !seen[l.Rel] {
			seen[l.Rel] = true
			rels = append(rels, l.Rel)
		}
	}
	return rels
}

// MarshalJSON renders the links as a HAL _links object. A relation with
// several links is rendered as an array.
func (ls Links) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, rel := range ls.Rels() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := sonic.Marshal(string(rel))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var group []Link
		for _, l := range ls {
			if l.Rel == rel {
				group = append(group, l)
			}
		}

		var value []byte
		if len(group) == 1 {
			value, err = sonic.Marshal(group[0])
		} else {
			value, err = sonic.Marshal(group)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
