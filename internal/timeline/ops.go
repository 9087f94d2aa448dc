package timeline

import (
	"fmt"

	"constellation/internal/graph"
	"constellation/internal/model"
)

// CreateState branches a new state off the current one and switches to
// it. The working copy is first saved into the state being left. When
// cloneFromCurrent is false the new state starts empty.
func (e *Engine) CreateState(label, description string, cloneFromCurrent bool) (string, error) {
	t, err := e.activeTimeline()
	if err != nil {
		return "", err
	}
	e.flush(t)
	prev := t.Current()

	g := graph.Empty()
	if cloneFromCurrent && prev != nil {
		g = prev.Graph.Clone()
	}
	now := e.clock.Now()
	s := &model.State{
		ID:            e.newID(),
		Label:         label,
		Description:   description,
		ParentStateID: t.CurrentStateID,
		Graph:         g,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.States[s.ID] = s
	t.CurrentStateID = s.ID

	e.markDirty(e.active)
	e.show(s)
	return s.ID, nil
}

// SwitchToState makes stateID current. Switching to the current state does
// nothing and reports changed=false.
func (e *Engine) SwitchToState(stateID string) (changed bool, err error) {
	t, err := e.activeTimeline()
	if err != nil {
		return false, err
	}
	target, ok := t.States[stateID]
	if !ok {
		return false, fmt.Errorf("state %s: %w", stateID, ErrStateNotFound)
	}
	if stateID == t.CurrentStateID {
		return false, nil
	}
	e.flush(t)
	t.CurrentStateID = stateID
	e.markDirty(e.active)
	e.show(target)
	return true, nil
}

// StateUpdate lists the fields UpdateState changes. Nil fields are kept;
// Metadata is merged key by key.
type StateUpdate struct {
	Label       *string
	Description *string
	Metadata    map[string]any
}

// UpdateState edits a state's label, description and metadata.
func (e *Engine) UpdateState(stateID string, u StateUpdate) error {
	t, err := e.activeTimeline()
	if err != nil {
		return err
	}
	s, ok := t.States[stateID]
	if !ok {
		return fmt.Errorf("state %s: %w", stateID, ErrStateNotFound)
	}
	if u.Label != nil {
		s.Label = *u.Label
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if len(u.Metadata) > 0 {
		merged := graph.CloneMap(s.Metadata)
		if merged == nil {
			merged = make(map[string]any, len(u.Metadata))
		}
		for k, v := range graph.CloneMap(u.Metadata) {
			merged[k] = v
		}
		s.Metadata = merged
	}
	s.UpdatedAt = e.clock.Now()
	e.markDirty(e.active)
	return nil
}

// CheckDeletable reports why stateID cannot be deleted, or nil. States
// with children need confirmChildren.
func (e *Engine) CheckDeletable(stateID string, confirmChildren bool) error {
	t, err := e.activeTimeline()
	if err != nil {
		return err
	}
	return t.checkDeletable(stateID, confirmChildren)
}

func (t *Timeline) checkDeletable(stateID string, confirmChildren bool) error {
	s, ok := t.States[stateID]
	if !ok {
		return fmt.Errorf("state %s: %w", stateID, ErrStateNotFound)
	}
	if stateID == t.RootStateID || s.IsRoot() {
		return ErrRootState
	}
	if stateID == t.CurrentStateID {
		return ErrCurrentState
	}
	if !confirmChildren && len(t.children(stateID)) > 0 {
		return ErrHasChildren
	}
	return nil
}

// DeleteState removes a single state. Its children are re-parented to the
// deleted state's parent; descendants are never deleted. The returned
// slice lists the re-parented child ids.
func (e *Engine) DeleteState(stateID string, confirmChildren bool) ([]string, error) {
	t, err := e.activeTimeline()
	if err != nil {
		return nil, err
	}
	if err := t.checkDeletable(stateID, confirmChildren); err != nil {
		return nil, err
	}
	parent := t.States[stateID].ParentStateID
	now := e.clock.Now()
	var moved []string
	for _, c := range t.children(stateID) {
		c.ParentStateID = parent
		c.UpdatedAt = now
		moved = append(moved, c.ID)
	}
	delete(t.States, stateID)
	e.markDirty(e.active)
	if len(moved) > 0 {
		e.logger.Debug("re-parented child states", "document", e.active, "deleted", stateID, "parent", parent, "children", moved)
	}
	return moved, nil
}

// DuplicateState adds a sibling of stateID with a deep-copied graph. The
// root has no siblings, so its copy becomes a child of the root. An empty
// newLabel becomes "<label> (Copy)".
func (e *Engine) DuplicateState(stateID, newLabel string) (string, error) {
	return e.duplicate(stateID, newLabel, false)
}

// DuplicateStateAsChild adds a child of stateID with a deep-copied graph.
func (e *Engine) DuplicateStateAsChild(stateID, newLabel string) (string, error) {
	return e.duplicate(stateID, newLabel, true)
}

func (e *Engine) duplicate(stateID, newLabel string, asChild bool) (string, error) {
	t, err := e.activeTimeline()
	if err != nil {
		return "", err
	}
	src, ok := t.States[stateID]
	if !ok {
		return "", fmt.Errorf("state %s: %w", stateID, ErrStateNotFound)
	}
	if stateID == t.CurrentStateID {
		e.flush(t)
	}
	if newLabel == "" {
		newLabel = src.Label + " (Copy)"
	}
	parent := src.ParentStateID
	if asChild || src.IsRoot() {
		parent = src.ID
	}
	now := e.clock.Now()
	dup := &model.State{
		ID:            e.newID(),
		Label:         newLabel,
		Description:   src.Description,
		ParentStateID: parent,
		Graph:         src.Graph.Clone(),
		Metadata:      graph.CloneMap(src.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.States[dup.ID] = dup
	e.markDirty(e.active)
	return dup.ID, nil
}

// GetState returns a copy of a state of the active document.
func (e *Engine) GetState(stateID string) (*model.State, bool) {
	t, err := e.activeTimeline()
	if err != nil {
		return nil, false
	}
	s, ok := t.States[stateID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// CurrentState returns a copy of the active document's current state.
func (e *Engine) CurrentState() (*model.State, bool) {
	t, err := e.activeTimeline()
	if err != nil {
		return nil, false
	}
	return t.Current().Clone(), true
}

// GetChildStates returns copies of the direct children of stateID, oldest
// first. States whose parent no longer exists are nobody's children.
func (e *Engine) GetChildStates(stateID string) []*model.State {
	t, err := e.activeTimeline()
	if err != nil {
		return nil
	}
	if _, ok := t.States[stateID]; !ok {
		return nil
	}
	kids := t.children(stateID)
	out := make([]*model.State, len(kids))
	for i, s := range kids {
		out[i] = s.Clone()
	}
	return out
}

// GetAllStates returns copies of every state of the active document,
// oldest first. It returns an empty slice without an active document.
func (e *Engine) GetAllStates() []*model.State {
	t, err := e.activeTimeline()
	if err != nil {
		return []*model.State{}
	}
	all := t.sorted()
	out := make([]*model.State, len(all))
	for i, s := range all {
		out[i] = s.Clone()
	}
	return out
}

// SaveCurrentGraph stores g in the active document's current state
// without copying it.
func (e *Engine) SaveCurrentGraph(g graph.Snapshot) error {
	t, err := e.activeTimeline()
	if err != nil {
		return err
	}
	cur := t.Current()
	cur.Graph = g
	cur.UpdatedAt = e.clock.Now()
	return nil
}

// Node is one entry of a depth-first walk over the state tree.
type Node struct {
	State   *model.State
	Depth   int
	Current bool
}

// Tree walks the active document's states depth-first from the root.
func (e *Engine) Tree() []Node {
	t, err := e.activeTimeline()
	if err != nil {
		return nil
	}
	var out []Node
	var walk func(s *model.State, depth int)
	walk = func(s *model.State, depth int) {
		out = append(out, Node{State: s.Clone(), Depth: depth, Current: s.ID == t.CurrentStateID})
		for _, c := range t.children(s.ID) {
			walk(c, depth+1)
		}
	}
	if root, ok := t.States[t.RootStateID]; ok {
		walk(root, 0)
	}
	return out
}

// Compare diffs the graphs of two states of the active document.
func (e *Engine) Compare(baseID, headID string) (graph.Diff, error) {
	t, err := e.activeTimeline()
	if err != nil {
		return graph.Diff{}, err
	}
	base, ok := t.States[baseID]
	if !ok {
		return graph.Diff{}, fmt.Errorf("state %s: %w", baseID, ErrStateNotFound)
	}
	head, ok := t.States[headID]
	if !ok {
		return graph.Diff{}, fmt.Errorf("state %s: %w", headID, ErrStateNotFound)
	}
	if baseID == t.CurrentStateID || headID == t.CurrentStateID {
		e.flush(t)
	}
	d := graph.Compare(base.Graph, head.Graph)
	d.Base, d.Head = baseID, headID
	return d, nil
}

// StripLabel removes labelID from every actor and relation in every state
// of documentID. Untouched elements keep their identity. The previous
// graphs of rewritten states are returned for rollback.
func (e *Engine) StripLabel(documentID, labelID string) (map[string]graph.Snapshot, error) {
	t, ok := e.timelines[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrTimelineNotFound)
	}
	prev := make(map[string]graph.Snapshot)
	for id, s := range t.States {
		out, changed := s.Graph.StripLabel(labelID)
		if !changed {
			continue
		}
		prev[id] = s.Graph
		s.Graph = out
	}
	return prev, nil
}

// RestoreGraphs puts back graphs captured by StripLabel.
func (e *Engine) RestoreGraphs(documentID string, prev map[string]graph.Snapshot) {
	t, ok := e.timelines[documentID]
	if !ok {
		return
	}
	for id, g := range prev {
		if s, ok := t.States[id]; ok {
			s.Graph = g
		}
	}
}
