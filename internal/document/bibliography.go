package document

import (
	"fmt"
	"sort"

	"constellation/internal/graph"
	"constellation/internal/model"
)

// References returns the document's bibliography sorted by id.
func (s *Store) References(documentID string) []model.Reference {
	idx := s.refs[documentID]
	out := make([]model.Reference, 0, len(idx))
	for _, r := range idx {
		r.Data = graph.CloneMap(r.Data)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetReference adds or replaces a bibliography entry.
func (s *Store) SetReference(documentID string, ref model.Reference) error {
	if err := model.Validate(ref); err != nil {
		return s.reject("setReference", err)
	}
	return s.transact("setReference", documentID, func(_ *model.ConstellationDocument, tx *txn) error {
		idx := s.refIndex(documentID)
		prev, had := idx[ref.ID]
		ref.Data = graph.CloneMap(ref.Data)
		idx[ref.ID] = ref
		tx.onRollback(func() {
			if had {
				idx[ref.ID] = prev
			} else {
				delete(idx, ref.ID)
			}
		})
		return nil
	})
}

// RemoveReference deletes a bibliography entry. Citations pointing at it
// are left on the elements.
func (s *Store) RemoveReference(documentID, id string) error {
	return s.transact("removeReference", documentID, func(_ *model.ConstellationDocument, tx *txn) error {
		idx := s.refIndex(documentID)
		prev, ok := idx[id]
		if !ok {
			return fmt.Errorf("reference %s: %w", id, ErrReferenceNotFound)
		}
		delete(idx, id)
		tx.onRollback(func() { idx[id] = prev })
		return nil
	})
}

func (s *Store) refIndex(documentID string) map[string]model.Reference {
	idx, ok := s.refs[documentID]
	if !ok {
		idx = make(map[string]model.Reference)
		s.refs[documentID] = idx
	}
	return idx
}

// Citations maps each reference id to the elements citing it across all
// states of the document.
func (s *Store) Citations(documentID string) map[string][]model.Citation {
	t, ok := s.tl.Timeline(documentID)
	if !ok {
		return nil
	}
	return model.CitationIndex(t.States)
}
