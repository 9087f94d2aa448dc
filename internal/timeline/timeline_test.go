package timeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constellation/internal/clock"
	"constellation/internal/graph"
	"constellation/internal/model"
	"constellation/internal/workingstore"
)

type fixture struct {
	eng     *Engine
	working *workingstore.Store
	clk     *clock.Manual
	dirty   []string
	root    string
}

func newFixture(t *testing.T, initial graph.Snapshot) *fixture {
	t.Helper()
	f := &fixture{
		working: workingstore.New(),
		clk:     clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	n := 0
	f.eng = New(Options{
		Working: f.working,
		Clock:   f.clk,
		OnDirty: func(id string) { f.dirty = append(f.dirty, id) },
		NewID: func() string {
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
	root, err := f.eng.InitializeTimeline("doc", initial)
	require.NoError(t, err)
	f.root = root
	f.eng.SetActiveDocument("doc")
	f.working.Load("doc", initial, workingstore.Catalogs{})
	f.working.FinishLoading()
	return f
}

func oneNode() graph.Snapshot {
	return graph.Snapshot{Nodes: []graph.Actor{{ID: "a1"}}, Edges: []graph.Relation{}, Groups: []graph.Group{}}
}

func assertSingleRoot(t *testing.T, e *Engine) {
	t.Helper()
	tl, ok := e.Timeline(e.ActiveDocument())
	require.True(t, ok)
	roots := 0
	for id, s := range tl.States {
		if s.IsRoot() {
			roots++
			assert.Equal(t, tl.RootStateID, id)
		}
	}
	assert.Equal(t, 1, roots)
	assert.NoError(t, tl.Validate())
}

func TestInitializeIsIdempotent(t *testing.T) {
	f := newFixture(t, oneNode())
	root, err := f.eng.InitializeTimeline("doc", graph.Empty())
	assert.ErrorIs(t, err, ErrTimelineExists)
	assert.Equal(t, f.root, root)
	tl, _ := f.eng.Timeline("doc")
	assert.Equal(t, f.root, tl.RootStateID)
	assert.Len(t, tl.Current().Graph.Nodes, 1)
}

func TestInitializeDeepCopiesInput(t *testing.T) {
	in := oneNode()
	e := New(Options{})
	_, err := e.InitializeTimeline("d", in)
	require.NoError(t, err)
	in.Nodes = append(in.Nodes, graph.Actor{ID: "a2"})
	in.Nodes[0].ID = "changed"

	tl, _ := e.Timeline("d")
	root := tl.States[tl.RootStateID]
	assert.Len(t, root.Graph.Nodes, 1)
	assert.Equal(t, "a1", root.Graph.Nodes[0].ID)
}

func TestCreateStateNeedsActiveDocument(t *testing.T) {
	e := New(Options{})
	id, err := e.CreateState("x", "", true)
	assert.ErrorIs(t, err, ErrNoActiveDocument)
	assert.Empty(t, id)
	assert.Equal(t, []*model.State{}, e.GetAllStates())
}

func TestCreateStateFlushesWorkingCopy(t *testing.T) {
	f := newFixture(t, oneNode())
	require.NoError(t, f.working.AddActor(graph.Actor{ID: "a2"}))

	id, err := f.eng.CreateState("A", "branch", true)
	require.NoError(t, err)

	root, _ := f.eng.GetState(f.root)
	assert.Len(t, root.Graph.Nodes, 2, "edit saved into the state being left")

	a, _ := f.eng.GetState(id)
	assert.Equal(t, f.root, a.ParentStateID)
	assert.Len(t, a.Graph.Nodes, 2)
	assert.Equal(t, "branch", a.Description)
	assert.Contains(t, f.dirty, "doc")
	assert.Len(t, f.working.Graph().Nodes, 2)

	// The clone is independent of the parent.
	require.NoError(t, f.working.AddActor(graph.Actor{ID: "a3"}))
	_, err = f.eng.SwitchToState(f.root)
	require.NoError(t, err)
	root, _ = f.eng.GetState(f.root)
	assert.Len(t, root.Graph.Nodes, 2)
	a, _ = f.eng.GetState(id)
	assert.Len(t, a.Graph.Nodes, 3)
}

func TestCreateEmptyState(t *testing.T) {
	f := newFixture(t, oneNode())
	id, err := f.eng.CreateState("blank", "", false)
	require.NoError(t, err)
	s, _ := f.eng.GetState(id)
	assert.Empty(t, s.Graph.Nodes)
	assert.Empty(t, f.working.Graph().Nodes)
}

func TestBranchIntegrity(t *testing.T) {
	f := newFixture(t, oneNode())
	a, err := f.eng.CreateState("A", "", true)
	require.NoError(t, err)
	_, err = f.eng.SwitchToState(f.root)
	require.NoError(t, err)
	b, err := f.eng.CreateState("B", "", true)
	require.NoError(t, err)

	sa, _ := f.eng.GetState(a)
	sb, _ := f.eng.GetState(b)
	assert.Equal(t, f.root, sa.ParentStateID)
	assert.Equal(t, f.root, sb.ParentStateID)
	assert.Len(t, f.eng.GetChildStates(f.root), 2)
	assertSingleRoot(t, f.eng)
}

func TestSwitchToSameStateIsNoop(t *testing.T) {
	f := newFixture(t, oneNode())
	before, _ := f.eng.GetState(f.root)
	f.dirty = nil
	f.clk.Advance(time.Minute)

	changed, err := f.eng.SwitchToState(f.root)
	require.NoError(t, err)
	assert.False(t, changed)

	after, _ := f.eng.GetState(f.root)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Empty(t, f.dirty)
}

func TestSwitchToMissingState(t *testing.T) {
	f := newFixture(t, oneNode())
	changed, err := f.eng.SwitchToState("nope")
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.False(t, changed)
}

func TestUpdateStateMergesMetadata(t *testing.T) {
	f := newFixture(t, oneNode())
	require.NoError(t, f.eng.UpdateState(f.root, StateUpdate{Metadata: map[string]any{"a": 1, "b": 2}}))
	label := "Renamed"
	f.clk.Advance(time.Second)
	require.NoError(t, f.eng.UpdateState(f.root, StateUpdate{Label: &label, Metadata: map[string]any{"b": 3, "c": 4}}))

	s, _ := f.eng.GetState(f.root)
	assert.Equal(t, "Renamed", s.Label)
	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, s.Metadata)
	assert.True(t, s.UpdatedAt.After(s.CreatedAt))

	assert.ErrorIs(t, f.eng.UpdateState("missing", StateUpdate{Label: &label}), ErrStateNotFound)
}

func TestDeleteRootAndCurrentRejected(t *testing.T) {
	f := newFixture(t, oneNode())
	_, err := f.eng.DeleteState(f.root, true)
	assert.ErrorIs(t, err, ErrRootState)

	cur, err := f.eng.CreateState("A", "", true)
	require.NoError(t, err)
	_, err = f.eng.DeleteState(cur, true)
	assert.ErrorIs(t, err, ErrCurrentState)
	assert.NotEqual(t, ErrRootState.Error(), ErrCurrentState.Error())

	tl, _ := f.eng.Timeline("doc")
	assert.Len(t, tl.States, 2)
}

func TestDeleteWithChildrenNeedsConfirm(t *testing.T) {
	f := newFixture(t, oneNode())
	a, _ := f.eng.CreateState("A", "", true)
	c1, _ := f.eng.CreateState("C1", "", true)
	_, _ = f.eng.SwitchToState(a)
	c2, _ := f.eng.CreateState("C2", "", true)
	_, _ = f.eng.SwitchToState(f.root)

	_, err := f.eng.DeleteState(a, false)
	assert.ErrorIs(t, err, ErrHasChildren)

	moved, err := f.eng.DeleteState(a, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1, c2}, moved)

	_, ok := f.eng.GetState(a)
	assert.False(t, ok)
	for _, id := range []string{c1, c2} {
		s, _ := f.eng.GetState(id)
		assert.Equal(t, f.root, s.ParentStateID)
	}
	assert.Len(t, f.eng.GetChildStates(f.root), 2)
	assertSingleRoot(t, f.eng)
}

func TestDuplicateState(t *testing.T) {
	f := newFixture(t, oneNode())
	a, _ := f.eng.CreateState("A", "", true)

	sib, err := f.eng.DuplicateState(a, "")
	require.NoError(t, err)
	child, err := f.eng.DuplicateStateAsChild(a, "Child")
	require.NoError(t, err)

	s, _ := f.eng.GetState(sib)
	assert.Equal(t, "A (Copy)", s.Label)
	assert.Equal(t, f.root, s.ParentStateID)

	c, _ := f.eng.GetState(child)
	assert.Equal(t, a, c.ParentStateID)
	assert.Equal(t, "Child", c.Label)

	// Duplicates do not switch.
	cur, _ := f.eng.CurrentState()
	assert.Equal(t, a, cur.ID)

	tl, _ := f.eng.Timeline("doc")
	tl.States[sib].Graph.Nodes[0].ID = "changed"
	assert.Equal(t, "a1", tl.States[a].Graph.Nodes[0].ID)
	assertSingleRoot(t, f.eng)
}

func TestDuplicateRoot(t *testing.T) {
	f := newFixture(t, oneNode())

	dup, err := f.eng.DuplicateState(f.root, "")
	require.NoError(t, err)
	s, ok := f.eng.GetState(dup)
	require.True(t, ok)
	assert.Equal(t, f.root, s.ParentStateID)
	assert.Equal(t, "Initial State (Copy)", s.Label)
	assertSingleRoot(t, f.eng)

	// The copy is an ordinary state: deletable once it is not current.
	require.NoError(t, f.eng.CheckDeletable(dup, false))

	st, err := f.eng.Serialize("doc")
	require.NoError(t, err)
	e2 := New(Options{})
	require.NoError(t, e2.LoadTimeline("doc2", st))
	e2.SetActiveDocument("doc2")
	assert.Len(t, e2.GetAllStates(), 2)
}

func TestSerializeRoundTrip(t *testing.T) {
	f := newFixture(t, oneNode())
	a, _ := f.eng.CreateState("A", "", true)
	st, err := f.eng.Serialize("doc")
	require.NoError(t, err)

	e2 := New(Options{})
	require.NoError(t, e2.LoadTimeline("doc", st))
	e2.SetActiveDocument("doc")
	cur, ok := e2.CurrentState()
	require.True(t, ok)
	assert.Equal(t, a, cur.ID)
	assert.Len(t, e2.GetAllStates(), 2)
}

func TestLoadTimelineRejectsDanglingPointers(t *testing.T) {
	e := New(Options{})
	err := e.LoadTimeline("d", model.SerializedTimeline{
		States:         model.RawStates(`{"a":{"id":"a","label":"A","graph":{}}}`),
		CurrentStateID: "missing",
		RootStateID:    "a",
	})
	assert.ErrorIs(t, err, ErrInvalidTimeline)
	assert.ErrorIs(t, err, model.ErrCorrupted)
	assert.False(t, e.Has("d"))
}

func TestChildStatesIgnoreDanglingParent(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.LoadTimeline("d", model.SerializedTimeline{
		States: model.RawStates(`[
			{"id":"r","label":"R","graph":{}},
			{"id":"x","label":"X","parentStateId":"gone","graph":{}}
		]`),
		CurrentStateID: "r",
		RootStateID:    "r",
	}))
	e.SetActiveDocument("d")
	assert.Empty(t, e.GetChildStates("r"))
	assert.Empty(t, e.GetChildStates("gone"))
	assert.Len(t, e.Tree(), 1)
}

func TestStripLabelAcrossStates(t *testing.T) {
	initial := graph.Snapshot{Nodes: []graph.Actor{
		{ID: "a1", Data: graph.ActorData{Labels: []string{"L1", "L2"}}},
		{ID: "a2", Data: graph.ActorData{Labels: []string{"L2"}}},
	}}
	f := newFixture(t, initial)
	b, _ := f.eng.CreateState("B", "", true)

	prev, err := f.eng.StripLabel("doc", "L1")
	require.NoError(t, err)
	assert.Len(t, prev, 2)

	for _, id := range []string{f.root, b} {
		s, _ := f.eng.GetState(id)
		assert.Equal(t, []string{"L2"}, s.Graph.Nodes[0].Data.Labels)
		assert.Equal(t, []string{"L2"}, s.Graph.Nodes[1].Data.Labels)
	}

	f.eng.RestoreGraphs("doc", prev)
	s, _ := f.eng.GetState(b)
	assert.Equal(t, []string{"L1", "L2"}, s.Graph.Nodes[0].Data.Labels)
}

func TestCompareStates(t *testing.T) {
	f := newFixture(t, oneNode())
	b, _ := f.eng.CreateState("B", "", true)
	require.NoError(t, f.working.AddActor(graph.Actor{ID: "a2"}))

	d, err := f.eng.Compare(f.root, b)
	require.NoError(t, err)
	assert.Equal(t, f.root, d.Base)
	assert.Equal(t, 1, d.Summary.ActorsAdded)
}

func TestTreeOrder(t *testing.T) {
	f := newFixture(t, oneNode())
	a, _ := f.eng.CreateState("A", "", true)
	f.clk.Advance(time.Second)
	aa, _ := f.eng.CreateState("AA", "", true)
	_, _ = f.eng.SwitchToState(f.root)
	f.clk.Advance(time.Second)
	b, _ := f.eng.CreateState("B", "", true)

	nodes := f.eng.Tree()
	require.Len(t, nodes, 4)
	ids := []string{nodes[0].State.ID, nodes[1].State.ID, nodes[2].State.ID, nodes[3].State.ID}
	assert.Equal(t, []string{f.root, a, aa, b}, ids)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.True(t, nodes[3].Current)
}

func TestClearTimeline(t *testing.T) {
	f := newFixture(t, oneNode())
	f.eng.ClearTimeline()
	assert.False(t, f.eng.Has("doc"))
	f.eng.ClearTimeline()
}
