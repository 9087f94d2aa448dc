package model

import (
	"sort"

	"constellation/internal/graph"
)

// Reference is one bibliography entry. Data holds the CSL-style fields
// verbatim.
type Reference struct {
	ID    string         `json:"id" validate:"required"`
	Type  string         `json:"type" validate:"required"`
	Title string         `json:"title,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// BibliographySettings controls citation rendering.
type BibliographySettings struct {
	DefaultStyle string `json:"defaultStyle,omitempty"`
	SortOrder    string `json:"sortOrder,omitempty"`
}

// Bibliography is the document-level reference list cited by actors and
// relations.
type Bibliography struct {
	References []Reference           `json:"references"`
	Metadata   *BibliographySettings `json:"metadata,omitempty"`
}

// Find returns the reference with the given id.
func (b *Bibliography) Find(id string) (Reference, bool) {
	if b == nil {
		return Reference{}, false
	}
	for _, r := range b.References {
		if r.ID == id {
			return r, true
		}
	}
	return Reference{}, false
}

// Clone deep-copies the bibliography.
func (b *Bibliography) Clone() *Bibliography {
	if b == nil {
		return nil
	}
	out := &Bibliography{References: make([]Reference, len(b.References))}
	for i, r := range b.References {
		r.Data = graph.CloneMap(r.Data)
		out.References[i] = r
	}
	if b.Metadata != nil {
		m := *b.Metadata
		out.Metadata = &m
	}
	return out
}

// Citation records one element citing a reference.
type Citation struct {
	StateID     string            `json:"stateId"`
	ElementKind graph.ElementKind `json:"elementKind"`
	ElementID   string            `json:"elementId"`
}

// CitationIndex maps reference ids to every element citing them, across
// all provided states. Each citation list is sorted by state then element.
func CitationIndex(states map[string]*State) map[string][]Citation {
	idx := make(map[string][]Citation)
	for sid, st := range states {
		if st == nil {
			continue
		}
		for _, a := range st.Graph.Nodes {
			for _, ref := range a.Data.Citations {
				idx[ref] = append(idx[ref], Citation{StateID: sid, ElementKind: graph.KindActor, ElementID: a.ID})
			}
		}
		for _, r := range st.Graph.Edges {
			for _, ref := range r.Data.Citations {
				idx[ref] = append(idx[ref], Citation{StateID: sid, ElementKind: graph.KindRelation, ElementID: r.ID})
			}
		}
	}
	for _, list := range idx {
		sort.Slice(list, func(i, j int) bool {
			if list[i].StateID != list[j].StateID {
				return list[i].StateID < list[j].StateID
			}
			if list[i].ElementKind != list[j].ElementKind {
				return list[i].ElementKind < list[j].ElementKind
			}
			return list[i].ElementID < list[j].ElementID
		})
	}
	return idx
}
