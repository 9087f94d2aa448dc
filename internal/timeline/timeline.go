// Package timeline implements the per-document tree of graph states.
//
// Every document owns one Timeline: a map of states linked through
// ParentStateID, a single root and a pointer to the state currently shown
// in the working store. Switching or branching always flushes the working
// copy into the state being left.
package timeline

import (
	"fmt"
	"sort"

	"constellation/internal/model"
)

// Timeline is the state tree of one document.
type Timeline struct {
	States         map[string]*model.State
	CurrentStateID string
	RootStateID    string
}

// Clone deep-copies the timeline, including every state graph.
func (t *Timeline) Clone() *Timeline {
	out := &Timeline{
		States:         make(map[string]*model.State, len(t.States)),
		CurrentStateID: t.CurrentStateID,
		RootStateID:    t.RootStateID,
	}
	for id, s := range t.States {
		out.States[id] = s.Clone()
	}
	return out
}

// Current returns the current state.
func (t *Timeline) Current() *model.State {
	return t.States[t.CurrentStateID]
}

// Validate checks that root and current resolve and that the root is the
// only parentless state.
func (t *Timeline) Validate() error {
	root, ok := t.States[t.RootStateID]
	if !ok {
		return fmt.Errorf("%w: root state %q missing", ErrInvalidTimeline, t.RootStateID)
	}
	if !root.IsRoot() {
		return fmt.Errorf("%w: root state %q has a parent", ErrInvalidTimeline, t.RootStateID)
	}
	if _, ok := t.States[t.CurrentStateID]; !ok {
		return fmt.Errorf("%w: current state %q missing", ErrInvalidTimeline, t.CurrentStateID)
	}
	for id, s := range t.States {
		if s.IsRoot() && id != t.RootStateID {
			return fmt.Errorf("%w: second root %q", ErrInvalidTimeline, id)
		}
	}
	return nil
}

func (t *Timeline) children(id string) []*model.State {
	var out []*model.State
	for _, s := range t.States {
		if s.ParentStateID == id {
			out = append(out, s)
		}
	}
	sortStates(out)
	return out
}

func (t *Timeline) sorted() []*model.State {
	out := make([]*model.State, 0, len(t.States))
	for _, s := range t.States {
		out = append(out, s)
	}
	sortStates(out)
	return out
}

// sortStates orders by creation time, then id.
func sortStates(list []*model.State) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// Serialize converts the timeline into its persisted form.
func (t *Timeline) Serialize() (model.SerializedTimeline, error) {
	raw, err := model.EncodeStates(t.States)
	if err != nil {
		return model.SerializedTimeline{}, err
	}
	return model.SerializedTimeline{
		States:         raw,
		CurrentStateID: t.CurrentStateID,
		RootStateID:    t.RootStateID,
	}, nil
}

// Deserialize decodes a persisted timeline and validates it.
func Deserialize(st model.SerializedTimeline) (*Timeline, error) {
	states, err := st.States.Decode()
	if err != nil {
		return nil, err
	}
	t := &Timeline{States: states, CurrentStateID: st.CurrentStateID, RootStateID: st.RootStateID}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
