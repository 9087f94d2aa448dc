package document

import (
	"fmt"
	"sort"

	"constellation/internal/cas"
	"constellation/internal/model"
	"constellation/internal/workingstore"
)

// Activate makes documentID the active document and loads its current
// state graph and catalogs into the working store. Change detection stays
// off until the settle window has passed.
func (s *Store) Activate(documentID string) error {
	doc, err := s.doc("activate", documentID)
	if err != nil {
		return err
	}
	t, ok := s.tl.Timeline(documentID)
	if !ok {
		return fmt.Errorf("activate %s: %w", documentID, ErrNotLoaded)
	}
	s.active = documentID
	s.tl.SetActiveDocument(documentID)
	s.working.Load(documentID, t.Current().Graph, workingstore.CatalogsOf(doc))
	s.startSettle()
	s.logger.Debug("document activated", "document", documentID, "state", t.CurrentStateID)
	return nil
}

// Deactivate clears the active document and empties the working store.
func (s *Store) Deactivate() {
	s.active = ""
	s.tl.SetActiveDocument("")
	if s.settleT != nil {
		s.settleT.Stop()
		s.settleT = nil
	}
	s.working.Reset()
}

func (s *Store) startSettle() {
	if s.settleT != nil {
		s.settleT.Stop()
		s.settleT = nil
	}
	s.settleGen++
	if s.settle <= 0 {
		s.working.FinishLoading()
		return
	}
	gen := s.settleGen
	s.settleT = s.clock.AfterFunc(s.settle, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if gen != s.settleGen {
			return
		}
		s.settleT = nil
		s.working.FinishLoading()
		s.logger.Debug("settle window closed", "document", s.active)
	})
}

// FinishSettle ends the settle window immediately.
func (s *Store) FinishSettle() {
	if s.settleT != nil {
		s.settleT.Stop()
		s.settleT = nil
	}
	s.settleGen++
	s.working.FinishLoading()
}

// onWorkingChange copies graph edits into the active document's current
// state.
func (s *Store) onWorkingChange(ev workingstore.Event) {
	if ev.Kind != workingstore.ChangeGraph {
		return
	}
	if ev.Loading {
		s.metrics.Skipped("loading")
		return
	}
	if s.active == "" || s.working.LastSyncedDocumentID() != s.active {
		s.metrics.Skipped("stale")
		s.logger.Debug("skipping stale working store change", "synced", s.working.LastSyncedDocumentID(), "active", s.active)
		return
	}
	t, ok := s.tl.Timeline(s.active)
	if !ok {
		return
	}
	live := s.working.Graph()
	if cas.MustFingerprint(live) == cas.MustFingerprint(t.Current().Graph.Normalize()) {
		s.metrics.Skipped("unchanged")
		return
	}
	if err := s.tl.SaveCurrentGraph(live); err != nil {
		s.logger.Error("syncing working graph", "document", s.active, "err", err)
		return
	}
	s.MarkDirty(s.active)
}

// mirror copies a document's catalogs, and optionally its current graph,
// into the working store when it is the active document.
func (s *Store) mirror(documentID string, withGraph bool) {
	if documentID != s.active || s.working.LastSyncedDocumentID() != documentID {
		return
	}
	doc, ok := s.docs[documentID]
	if !ok {
		return
	}
	s.working.SetCatalogs(workingstore.CatalogsOf(doc))
	if withGraph {
		if t, ok := s.tl.Timeline(documentID); ok {
			s.working.SetGraph(t.Current().Graph)
		}
	}
}

// serialized returns a copy of the document with the full timeline and the
// flattened bibliography written into it.
func (s *Store) serialized(documentID string) (*model.ConstellationDocument, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", documentID, ErrNotLoaded)
	}
	out := *doc
	if s.tl.Has(documentID) {
		st, err := s.tl.Serialize(documentID)
		if err != nil {
			return nil, err
		}
		out.Timeline = st
	}
	out.Bibliography = s.flattenBibliography(documentID, doc.Bibliography)
	out.Normalize()
	return &out, nil
}

func (s *Store) flattenBibliography(documentID string, prev *model.Bibliography) *model.Bibliography {
	idx, ok := s.refs[documentID]
	if !ok {
		return prev
	}
	if len(idx) == 0 && prev == nil {
		return nil
	}
	out := &model.Bibliography{References: make([]model.Reference, 0, len(idx))}
	if prev != nil && prev.Metadata != nil {
		m := *prev.Metadata
		out.Metadata = &m
	}
	for _, r := range idx {
		out.References = append(out.References, r)
	}
	sort.Slice(out.References, func(i, j int) bool { return out.References[i].ID < out.References[j].ID })
	return out
}

func (s *Store) indexBibliography(documentID string, b *model.Bibliography) {
	idx := make(map[string]model.Reference)
	if b != nil {
		for _, r := range b.Clone().References {
			idx[r.ID] = r
		}
	}
	s.refs[documentID] = idx
}
