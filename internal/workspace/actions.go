package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"constellation/internal/graph"
	"constellation/internal/model"
	"constellation/internal/notify"
	"constellation/internal/timeline"
)

// warn reports a rejected timeline or graph operation. Document store
// operations report their own failures.
func (m *Manager) warn(op string, err error) error {
	if err != nil {
		m.toaster.Toast(err.Error(), notify.Warning, 0)
		m.logger.Warn("operation rejected", "op", op, "err", err)
	}
	return err
}

// tracked runs fn against the active document and, when it succeeds,
// records the document as it was before fn under description. Any open
// drag burst is closed first so it stays a separate entry.
func (m *Manager) tracked(description string, fn func(id string) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackedLocked(description, fn)
}

func (m *Manager) trackedLocked(description string, fn func(id string) error) error {
	id, err := m.activeLocked()
	if err != nil {
		return err
	}
	// An explicit edit ends the post-load settle window.
	m.docs.FinishSettle()
	m.drag.End(id)
	before, err := m.docs.CaptureSnapshot(id)
	if err != nil {
		return err
	}
	if err := fn(id); err != nil {
		return err
	}
	m.history.Push(id, description, before)
	m.metrics.HistoryOp("push")
	return nil
}

// CreateState branches a new state off the current one and switches to it.
func (m *Manager) CreateState(label, description string, cloneFromCurrent bool) (string, error) {
	var stateID string
	err := m.tracked("Create state", func(string) error {
		var err error
		stateID, err = m.tl.CreateState(label, description, cloneFromCurrent)
		return m.warn("createState", err)
	})
	return stateID, err
}

// SwitchState makes stateID current. Switching to the current state
// records nothing.
func (m *Manager) SwitchState(stateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.tl.CurrentState(); ok && cur.ID == stateID {
		return nil
	}
	if _, ok := m.tl.GetState(stateID); !ok && m.docs.Active() != "" {
		return m.warn("switchState", fmt.Errorf("state %s: %w", stateID, timeline.ErrStateNotFound))
	}
	return m.trackedLocked("Switch state", func(string) error {
		_, err := m.tl.SwitchToState(stateID)
		return m.warn("switchState", err)
	})
}

// UpdateState renames or re-describes a state.
func (m *Manager) UpdateState(stateID string, u timeline.StateUpdate) error {
	return m.tracked("Update state", func(string) error {
		return m.warn("updateState", m.tl.UpdateState(stateID, u))
	})
}

// DeleteState deletes a state of the active document. A state with
// children needs confirmation; the children move to its parent.
func (m *Manager) DeleteState(ctx context.Context, stateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tl.CheckDeletable(stateID, false); errors.Is(err, timeline.ErrHasChildren) {
		n := len(m.tl.GetChildStates(stateID))
		ok, err := m.confirmer.Confirm(ctx, notify.ConfirmOptions{
			Title:        "Delete state",
			Message:      fmt.Sprintf("This state has %d child state(s). They will be attached to its parent. Delete it?", n),
			ConfirmLabel: "Delete",
			CancelLabel:  "Cancel",
			Severity:     notify.Warning,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotConfirmed
		}
	}
	return m.trackedLocked("Delete state", func(string) error {
		return m.docs.DeleteState(stateID, true)
	})
}

// DuplicateState copies a state as a sibling.
func (m *Manager) DuplicateState(stateID, label string) (string, error) {
	var dup string
	err := m.tracked("Duplicate state", func(string) error {
		var err error
		dup, err = m.tl.DuplicateState(stateID, label)
		return m.warn("duplicateState", err)
	})
	return dup, err
}

// DuplicateStateAsChild copies a state as its own child.
func (m *Manager) DuplicateStateAsChild(stateID, label string) (string, error) {
	var dup string
	err := m.tracked("Duplicate state", func(string) error {
		var err error
		dup, err = m.tl.DuplicateStateAsChild(stateID, label)
		return m.warn("duplicateStateAsChild", err)
	})
	return dup, err
}

// CompareStates diffs two states of the active document.
func (m *Manager) CompareStates(baseID, headID string) (graph.Diff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.tl.Compare(baseID, headID)
	return d, m.warn("compare", err)
}

// Tree returns the active document's state tree.
func (m *Manager) Tree() []timeline.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tl.Tree()
}

// AddActor adds an actor to the current state.
func (m *Manager) AddActor(a graph.Actor) error {
	return m.tracked("Add actor", func(string) error {
		return m.warn("addActor", m.working.AddActor(a))
	})
}

// UpdateActor edits an actor of the current state.
func (m *Manager) UpdateActor(id string, fn func(a *graph.Actor)) error {
	return m.tracked("Update actor", func(string) error {
		return m.warn("updateActor", m.working.UpdateActor(id, fn))
	})
}

// RemoveActor deletes an actor, its relations and its group memberships.
func (m *Manager) RemoveActor(id string) error {
	return m.tracked("Delete actor", func(string) error {
		return m.warn("removeActor", m.working.RemoveActor(id))
	})
}

// MoveActor repositions an actor. Moves arriving within the drag window
// of each other share one history entry.
func (m *Manager) MoveActor(id string, pos graph.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docID, err := m.activeLocked()
	if err != nil {
		return err
	}
	m.docs.FinishSettle()
	pushed, err := m.drag.Push(docID, "Move actor")
	if err != nil {
		return err
	}
	if err := m.warn("moveActor", m.working.MoveActor(id, pos)); err != nil {
		if pushed {
			m.history.DropLast(docID)
		}
		return err
	}
	if pushed {
		m.metrics.HistoryOp("push")
	}
	return nil
}

// EndDrag closes the active document's drag burst.
func (m *Manager) EndDrag() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id := m.docs.Active(); id != "" {
		m.drag.End(id)
	}
}

// AddRelation connects two actors of the current state.
func (m *Manager) AddRelation(r graph.Relation) error {
	return m.tracked("Add relation", func(string) error {
		return m.warn("addRelation", m.working.AddRelation(r))
	})
}

// UpdateRelation edits a relation of the current state.
func (m *Manager) UpdateRelation(id string, fn func(r *graph.Relation)) error {
	return m.tracked("Update relation", func(string) error {
		return m.warn("updateRelation", m.working.UpdateRelation(id, fn))
	})
}

// RemoveRelation deletes a relation.
func (m *Manager) RemoveRelation(id string) error {
	return m.tracked("Delete relation", func(string) error {
		return m.warn("removeRelation", m.working.RemoveRelation(id))
	})
}

// AddGroup adds a group of actors.
func (m *Manager) AddGroup(g graph.Group) error {
	return m.tracked("Add group", func(string) error {
		return m.warn("addGroup", m.working.AddGroup(g))
	})
}

// RemoveGroup deletes a group, keeping its actors.
func (m *Manager) RemoveGroup(id string) error {
	return m.tracked("Delete group", func(string) error {
		return m.warn("removeGroup", m.working.RemoveGroup(id))
	})
}

func (m *Manager) AddNodeType(nt model.NodeTypeConfig) error {
	return m.tracked("Add node type", func(id string) error { return m.docs.AddNodeType(id, nt) })
}

func (m *Manager) UpdateNodeType(typeID string, fn func(*model.NodeTypeConfig)) error {
	return m.tracked("Update node type", func(id string) error { return m.docs.UpdateNodeType(id, typeID, fn) })
}

func (m *Manager) DeleteNodeType(typeID string) error {
	return m.tracked("Delete node type", func(id string) error { return m.docs.DeleteNodeType(id, typeID) })
}

func (m *Manager) AddEdgeType(et model.EdgeTypeConfig) error {
	return m.tracked("Add edge type", func(id string) error { return m.docs.AddEdgeType(id, et) })
}

func (m *Manager) UpdateEdgeType(typeID string, fn func(*model.EdgeTypeConfig)) error {
	return m.tracked("Update edge type", func(id string) error { return m.docs.UpdateEdgeType(id, typeID, fn) })
}

func (m *Manager) DeleteEdgeType(typeID string) error {
	return m.tracked("Delete edge type", func(id string) error { return m.docs.DeleteEdgeType(id, typeID) })
}

func (m *Manager) AddLabel(l model.LabelConfig) error {
	return m.tracked("Add label", func(id string) error { return m.docs.AddLabel(id, l) })
}

func (m *Manager) UpdateLabel(labelID string, fn func(*model.LabelConfig)) error {
	return m.tracked("Update label", func(id string) error { return m.docs.UpdateLabel(id, labelID, fn) })
}

// DeleteLabel removes a label everywhere it is used.
func (m *Manager) DeleteLabel(labelID string) error {
	return m.tracked("Delete label", func(id string) error { return m.docs.DeleteLabel(id, labelID) })
}

func (m *Manager) AddTangible(t model.TangibleConfig) error {
	return m.tracked("Add tangible", func(id string) error { return m.docs.AddTangible(id, t) })
}

func (m *Manager) UpdateTangible(tangibleID string, fn func(*model.TangibleConfig)) error {
	return m.tracked("Update tangible", func(id string) error { return m.docs.UpdateTangible(id, tangibleID, fn) })
}

func (m *Manager) DeleteTangible(tangibleID string) error {
	return m.tracked("Delete tangible", func(id string) error { return m.docs.DeleteTangible(id, tangibleID) })
}

// SetReference adds or replaces a bibliography reference. Not tracked by
// history.
func (m *Manager) SetReference(ref model.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return err
	}
	return m.docs.SetReference(id, ref)
}

// RemoveReference deletes a bibliography reference.
func (m *Manager) RemoveReference(refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return err
	}
	return m.docs.RemoveReference(id, refID)
}

// Undo reverts the active document's last tracked action and returns its
// description. ok is false when there was nothing to undo.
func (m *Manager) Undo() (description string, ok bool, err error) {
	return m.step(true)
}

// Redo reapplies the last undone action.
func (m *Manager) Redo() (description string, ok bool, err error) {
	return m.step(false)
}

func (m *Manager) step(undo bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return "", false, err
	}
	m.drag.End(id)
	m.docs.FinishSettle()

	verb, run := "Undo", m.history.Undo
	if !undo {
		verb, run = "Redo", m.history.Redo
	}
	desc, done, err := run(id)
	if err != nil {
		m.logger.Error("history step failed", "op", verb, "document", id, "err", err)
		m.toaster.Toast(fmt.Sprintf("%s failed: %v", verb, err), notify.Error, 0)
		return "", false, err
	}
	if !done {
		m.toaster.Toast("Nothing to "+strings.ToLower(verb), notify.Info, 0)
		return "", false, nil
	}
	m.metrics.HistoryOp(strings.ToLower(verb))
	m.toaster.Toast(fmt.Sprintf("%s: %s", verb, desc), notify.Info, 0)
	return desc, true, nil
}

// CanUndo reports whether the active document has an undo entry.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanUndo(m.docs.Active())
}

// CanRedo reports whether the active document has a redo entry.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanRedo(m.docs.Active())
}
