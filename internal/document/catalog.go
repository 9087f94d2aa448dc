package document

import (
	"fmt"

	"constellation/internal/model"
)

func indexOf[T any](list []T, id string, key func(T) string) int {
	for i, v := range list {
		if key(v) == id {
			return i
		}
	}
	return -1
}

// replaced returns a copy of list with element i set to v.
func replaced[T any](list []T, i int, v T) []T {
	out := append([]T(nil), list...)
	out[i] = v
	return out
}

// removed returns a copy of list without element i.
func removed[T any](list []T, i int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// appended returns a copy of list with v added.
func appended[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v)
}

func nodeTypeID(t model.NodeTypeConfig) string { return t.ID }
func edgeTypeID(t model.EdgeTypeConfig) string { return t.ID }
func labelID(l model.LabelConfig) string       { return l.ID }
func tangibleID(t model.TangibleConfig) string { return t.ID }

// AddNodeType appends an actor type to the document catalog.
func (s *Store) AddNodeType(documentID string, nt model.NodeTypeConfig) error {
	if err := model.Validate(nt); err != nil {
		return s.reject("addNodeType", err)
	}
	return s.transact("addNodeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		if indexOf(doc.NodeTypes, nt.ID, nodeTypeID) >= 0 {
			return fmt.Errorf("node type %s: %w", nt.ID, ErrDuplicateID)
		}
		doc.NodeTypes = appended(doc.NodeTypes, nt)
		return nil
	})
}

// UpdateNodeType edits an actor type in place. The id cannot change.
func (s *Store) UpdateNodeType(documentID, id string, fn func(nt *model.NodeTypeConfig)) error {
	return s.transact("updateNodeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.NodeTypes, id, nodeTypeID)
		if i < 0 {
			return fmt.Errorf("node type %s: %w", id, ErrNodeTypeNotFound)
		}
		nt := doc.NodeTypes[i]
		fn(&nt)
		nt.ID = id
		if err := model.Validate(nt); err != nil {
			return err
		}
		doc.NodeTypes = replaced(doc.NodeTypes, i, nt)
		return nil
	})
}

// DeleteNodeType removes an actor type. Actors using it keep the type id.
func (s *Store) DeleteNodeType(documentID, id string) error {
	return s.transact("deleteNodeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.NodeTypes, id, nodeTypeID)
		if i < 0 {
			return fmt.Errorf("node type %s: %w", id, ErrNodeTypeNotFound)
		}
		doc.NodeTypes = removed(doc.NodeTypes, i)
		return nil
	})
}

// AddEdgeType appends a relation type to the document catalog.
func (s *Store) AddEdgeType(documentID string, et model.EdgeTypeConfig) error {
	if err := model.Validate(et); err != nil {
		return s.reject("addEdgeType", err)
	}
	return s.transact("addEdgeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		if indexOf(doc.EdgeTypes, et.ID, edgeTypeID) >= 0 {
			return fmt.Errorf("edge type %s: %w", et.ID, ErrDuplicateID)
		}
		doc.EdgeTypes = appended(doc.EdgeTypes, et)
		return nil
	})
}

// UpdateEdgeType edits a relation type in place.
func (s *Store) UpdateEdgeType(documentID, id string, fn func(et *model.EdgeTypeConfig)) error {
	return s.transact("updateEdgeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.EdgeTypes, id, edgeTypeID)
		if i < 0 {
			return fmt.Errorf("edge type %s: %w", id, ErrEdgeTypeNotFound)
		}
		et := doc.EdgeTypes[i]
		fn(&et)
		et.ID = id
		if err := model.Validate(et); err != nil {
			return err
		}
		doc.EdgeTypes = replaced(doc.EdgeTypes, i, et)
		return nil
	})
}

// DeleteEdgeType removes a relation type.
func (s *Store) DeleteEdgeType(documentID, id string) error {
	return s.transact("deleteEdgeType", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.EdgeTypes, id, edgeTypeID)
		if i < 0 {
			return fmt.Errorf("edge type %s: %w", id, ErrEdgeTypeNotFound)
		}
		doc.EdgeTypes = removed(doc.EdgeTypes, i)
		return nil
	})
}

// AddLabel appends a label to the document catalog.
func (s *Store) AddLabel(documentID string, l model.LabelConfig) error {
	if err := model.Validate(l); err != nil {
		return s.reject("addLabel", err)
	}
	return s.transact("addLabel", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		if indexOf(doc.Labels, l.ID, labelID) >= 0 {
			return fmt.Errorf("label %s: %w", l.ID, ErrDuplicateID)
		}
		doc.Labels = appended(doc.Labels, l)
		return nil
	})
}

// UpdateLabel edits a label in place.
func (s *Store) UpdateLabel(documentID, id string, fn func(l *model.LabelConfig)) error {
	return s.transact("updateLabel", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.Labels, id, labelID)
		if i < 0 {
			return fmt.Errorf("label %s: %w", id, ErrLabelNotFound)
		}
		l := doc.Labels[i]
		fn(&l)
		l.ID = id
		if err := model.Validate(l); err != nil {
			return err
		}
		doc.Labels = replaced(doc.Labels, i, l)
		return nil
	})
}

// DeleteLabel removes a label from the catalog, from every actor and
// relation in every timeline state, and from the filters of filter-mode
// tangibles. Elements and tangibles not referencing the label are left as
// they are.
func (s *Store) DeleteLabel(documentID, id string) error {
	return s.transact("deleteLabel", documentID, func(doc *model.ConstellationDocument, tx *txn) error {
		i := indexOf(doc.Labels, id, labelID)
		if i < 0 {
			return fmt.Errorf("label %s: %w", id, ErrLabelNotFound)
		}
		doc.Labels = removed(doc.Labels, i)

		if s.tl.Has(documentID) {
			prev, err := s.tl.StripLabel(documentID, id)
			if err != nil {
				return err
			}
			if len(prev) > 0 {
				tx.onRollback(func() { s.tl.RestoreGraphs(documentID, prev) })
				tx.touchGraph()
			}
		}

		var tangibles []model.TangibleConfig
		for ti, t := range doc.Tangibles {
			stripped, changed := t.WithoutLabel(id)
			if !changed {
				continue
			}
			if tangibles == nil {
				tangibles = append([]model.TangibleConfig(nil), doc.Tangibles...)
			}
			tangibles[ti] = stripped
		}
		if tangibles != nil {
			doc.Tangibles = tangibles
		}
		return nil
	})
}

func (s *Store) checkTangible(documentID string, doc *model.ConstellationDocument, t model.TangibleConfig, skip int) error {
	if err := model.Validate(t); err != nil {
		return err
	}
	if t.IsStateBound() {
		tl, ok := s.tl.Timeline(documentID)
		if !ok {
			return fmt.Errorf("tangible %s: %w", t.ID, ErrNotLoaded)
		}
		if _, ok := tl.States[t.StateID]; !ok {
			return fmt.Errorf("%w: tangible %s targets unknown state %s", ErrInvalidTangible, t.ID, t.StateID)
		}
	} else if !t.HasFilter() {
		return fmt.Errorf("%w: filter tangible %s has no filter", ErrInvalidTangible, t.ID)
	}
	if t.HardwareID != "" {
		for i, other := range doc.Tangibles {
			if i != skip && other.HardwareID == t.HardwareID {
				return fmt.Errorf("tangible hardware id %s: %w", t.HardwareID, ErrDuplicateID)
			}
		}
	}
	return nil
}

// AddTangible appends a tangible binding.
func (s *Store) AddTangible(documentID string, t model.TangibleConfig) error {
	return s.transact("addTangible", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		if indexOf(doc.Tangibles, t.ID, tangibleID) >= 0 {
			return fmt.Errorf("tangible %s: %w", t.ID, ErrDuplicateID)
		}
		if err := s.checkTangible(documentID, doc, t, -1); err != nil {
			return err
		}
		doc.Tangibles = appended(doc.Tangibles, model.CloneTangibles([]model.TangibleConfig{t})[0])
		return nil
	})
}

// UpdateTangible edits a tangible in place.
func (s *Store) UpdateTangible(documentID, id string, fn func(t *model.TangibleConfig)) error {
	return s.transact("updateTangible", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.Tangibles, id, tangibleID)
		if i < 0 {
			return fmt.Errorf("tangible %s: %w", id, ErrTangibleNotFound)
		}
		t := model.CloneTangibles(doc.Tangibles[i : i+1])[0]
		fn(&t)
		t.ID = id
		if err := s.checkTangible(documentID, doc, t, i); err != nil {
			return err
		}
		doc.Tangibles = replaced(doc.Tangibles, i, t)
		return nil
	})
}

// DeleteTangible removes a tangible binding.
func (s *Store) DeleteTangible(documentID, id string) error {
	return s.transact("deleteTangible", documentID, func(doc *model.ConstellationDocument, _ *txn) error {
		i := indexOf(doc.Tangibles, id, tangibleID)
		if i < 0 {
			return fmt.Errorf("tangible %s: %w", id, ErrTangibleNotFound)
		}
		doc.Tangibles = removed(doc.Tangibles, i)
		return nil
	})
}

// DeleteState removes a state of the active document and every tangible
// bound to it in state or stateDial mode. Filter tangibles are kept.
// Children are re-parented to the deleted state's parent.
func (s *Store) DeleteState(stateID string, confirmChildren bool) error {
	documentID := s.active
	if err := s.tl.CheckDeletable(stateID, confirmChildren); err != nil {
		return s.reject("deleteState", err)
	}
	return s.transact("deleteState", documentID, func(doc *model.ConstellationDocument, tx *txn) error {
		snap, ok := s.tl.Snapshot(documentID)
		if !ok {
			return fmt.Errorf("delete state %s: %w", stateID, ErrNotLoaded)
		}
		if _, err := s.tl.DeleteState(stateID, confirmChildren); err != nil {
			return err
		}
		tx.onRollback(func() { s.tl.Replace(documentID, snap) })

		kept := make([]model.TangibleConfig, 0, len(doc.Tangibles))
		for _, t := range doc.Tangibles {
			if !t.BoundTo(stateID) {
				kept = append(kept, t)
			}
		}
		if len(kept) != len(doc.Tangibles) {
			doc.Tangibles = kept
		}
		return nil
	})
}
