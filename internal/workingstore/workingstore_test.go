package workingstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constellation/internal/graph"
	"constellation/internal/model"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	g := graph.Snapshot{
		Nodes: []graph.Actor{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []graph.Relation{{ID: "ab", Source: "a", Target: "b"}, {ID: "bc", Source: "b", Target: "c"}},
	}
	s.Load("doc", g, Catalogs{Labels: []model.LabelConfig{{ID: "L1", Name: "one"}}})
	s.FinishLoading()
	return s
}

func TestLoadSetsGuardAndLoadingFlag(t *testing.T) {
	s := New()
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	in := graph.Snapshot{Nodes: []graph.Actor{{ID: "a"}}}
	s.Load("doc1", in, Catalogs{})
	require.Len(t, events, 1)
	assert.Equal(t, ChangeLoad, events[0].Kind)
	assert.True(t, events[0].Loading)
	assert.Equal(t, "doc1", events[0].DocumentID)
	assert.True(t, s.Loading())

	in.Nodes[0].ID = "mutated"
	assert.Equal(t, "a", s.Graph().Nodes[0].ID)

	s.FinishLoading()
	assert.False(t, s.Loading())
	assert.Equal(t, "doc1", s.LastSyncedDocumentID())
}

func TestGraphReturnsCopy(t *testing.T) {
	s := seeded(t)
	g := s.Graph()
	g.Nodes[0].ID = "x"
	assert.Equal(t, "a", s.Graph().Nodes[0].ID)
}

func TestUnsubscribe(t *testing.T) {
	s := New()
	calls := 0
	stop := s.Subscribe(func(Event) { calls++ })
	s.SetGraph(graph.Empty())
	stop()
	s.SetGraph(graph.Empty())
	assert.Equal(t, 1, calls)
}

func TestRemoveActorCascades(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.AddGroup(graph.Group{ID: "g", Data: graph.GroupData{ActorIDs: []string{"a", "b"}}}))
	require.NoError(t, s.RemoveActor("b"))

	g := s.Graph()
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)
	assert.Equal(t, []string{"a"}, g.Groups[0].Data.ActorIDs)

	assert.ErrorIs(t, s.RemoveActor("b"), ErrActorNotFound)
}

func TestAddRelationChecksEndpoints(t *testing.T) {
	s := seeded(t)
	assert.ErrorIs(t, s.AddRelation(graph.Relation{ID: "x", Source: "a", Target: "zz"}), ErrUnknownEndpoint)
	assert.ErrorIs(t, s.AddRelation(graph.Relation{ID: "ab", Source: "a", Target: "c"}), ErrDuplicateID)
	require.NoError(t, s.AddRelation(graph.Relation{ID: "ac", Source: "a", Target: "c"}))
	assert.Len(t, s.Graph().Edges, 3)
}

func TestFailedEditDoesNotNotify(t *testing.T) {
	s := seeded(t)
	calls := 0
	s.Subscribe(func(Event) { calls++ })
	assert.Error(t, s.AddActor(graph.Actor{ID: "a"}))
	assert.Equal(t, 0, calls)
	require.NoError(t, s.MoveActor("a", graph.Position{X: 5, Y: 6}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, graph.Position{X: 5, Y: 6}, s.Graph().Nodes[0].Position)
}

func TestUpdateRelationKeepsEndpoints(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.UpdateRelation("ab", func(r *graph.Relation) {
		r.Source = "c"
		r.Data.Label = "knows"
	}))
	r := s.Graph().Edges[0]
	assert.Equal(t, "a", r.Source)
	assert.Equal(t, "knows", r.Data.Label)
}

func TestRemoveGroupClearsParent(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.AddGroup(graph.Group{ID: "g", Data: graph.GroupData{ActorIDs: []string{"a"}}}))
	assert.Equal(t, "g", s.Graph().Nodes[0].ParentID)
	require.NoError(t, s.RemoveGroup("g"))
	assert.Empty(t, s.Graph().Nodes[0].ParentID)
	assert.Empty(t, s.Graph().Groups)
}

func TestCatalogsAreCopied(t *testing.T) {
	s := seeded(t)
	c := s.Catalogs()
	c.Labels[0].Name = "changed"
	assert.Equal(t, "one", s.Catalogs().Labels[0].Name)
}
