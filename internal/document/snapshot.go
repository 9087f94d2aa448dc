package document

import (
	"fmt"

	"constellation/internal/history"
	"constellation/internal/model"
)

var _ history.Target = (*Store)(nil)

// CaptureSnapshot deep-copies the document's timeline and catalogs.
func (s *Store) CaptureSnapshot(documentID string) (history.Snapshot, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return history.Snapshot{}, fmt.Errorf("capture %s: %w", documentID, ErrNotLoaded)
	}
	t, ok := s.tl.Snapshot(documentID)
	if !ok {
		return history.Snapshot{}, fmt.Errorf("capture %s: %w", documentID, ErrNotLoaded)
	}
	return history.Snapshot{
		Timeline:  t,
		NodeTypes: model.CloneNodeTypes(doc.NodeTypes),
		EdgeTypes: model.CloneEdgeTypes(doc.EdgeTypes),
		Labels:    model.CloneLabels(doc.Labels),
		Tangibles: model.CloneTangibles(doc.Tangibles),
	}, nil
}

// RestoreSnapshot installs a snapshot as the live document, refreshes the
// working store when the document is active and marks it dirty.
func (s *Store) RestoreSnapshot(documentID string, snap history.Snapshot) error {
	doc, ok := s.docs[documentID]
	if !ok {
		return fmt.Errorf("restore %s: %w", documentID, ErrNotLoaded)
	}
	if snap.Timeline == nil {
		return fmt.Errorf("restore %s: snapshot has no timeline", documentID)
	}
	if err := snap.Timeline.Validate(); err != nil {
		return fmt.Errorf("restore %s: %w", documentID, err)
	}
	s.tl.Replace(documentID, snap.Timeline)
	doc.NodeTypes = model.CloneNodeTypes(snap.NodeTypes)
	doc.EdgeTypes = model.CloneEdgeTypes(snap.EdgeTypes)
	doc.Labels = model.CloneLabels(snap.Labels)
	if snap.Tangibles != nil {
		doc.Tangibles = model.CloneTangibles(snap.Tangibles)
	}
	doc.Normalize()
	s.mirror(documentID, true)
	s.MarkDirty(documentID)
	return nil
}
