package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Snapshot {
	return Snapshot{
		Nodes: []Actor{
			{ID: "a1", Position: Position{X: 1, Y: 2}, Data: ActorData{Type: "person", Label: "Alice", Labels: []string{"L1", "L2"}, Metadata: map[string]any{"tags": []any{"x"}}}},
			{ID: "a2", Data: ActorData{Type: "org", Label: "Acme"}},
		},
		Edges: []Relation{
			{ID: "r1", Source: "a1", Target: "a2", Data: RelationData{Type: "works-for", Labels: []string{"L1"}}},
			{ID: "r2", Source: "a2", Target: "a1", Data: RelationData{Type: "employs"}},
		},
		Groups: []Group{
			{ID: "g1", Data: GroupData{Label: "Team", ActorIDs: []string{"a1"}}},
		},
	}
}

func TestClone_Independent(t *testing.T) {
	orig := sample()
	cp := orig.Clone()

	cp.Nodes[0].Data.Labels[0] = "changed"
	cp.Nodes[0].Data.Metadata["tags"].([]any)[0] = "y"
	cp.Groups[0].Data.ActorIDs = append(cp.Groups[0].Data.ActorIDs, "a2")
	cp.Nodes = append(cp.Nodes, Actor{ID: "a3"})

	assert.Equal(t, "L1", orig.Nodes[0].Data.Labels[0])
	assert.Equal(t, "x", orig.Nodes[0].Data.Metadata["tags"].([]any)[0])
	assert.Len(t, orig.Groups[0].Data.ActorIDs, 1)
	assert.Len(t, orig.Nodes, 2)
}

func TestEmpty_EncodesArrays(t *testing.T) {
	out, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[],"groups":[]}`, string(out))

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{}`), &s))
	assert.NotNil(t, s.Normalize().Nodes)
}

func TestStripLabel_RewritesOnlyReferencingElements(t *testing.T) {
	orig := sample()
	untouched := orig.Nodes[1]

	out, changed := orig.StripLabel("L1")
	require.True(t, changed)

	assert.Equal(t, []string{"L2"}, out.Nodes[0].Data.Labels)
	assert.Empty(t, out.Edges[0].Data.Labels)
	assert.Equal(t, untouched, out.Nodes[1])

	// The original is never mutated.
	assert.Equal(t, []string{"L1", "L2"}, orig.Nodes[0].Data.Labels)
	assert.Equal(t, []string{"L1"}, orig.Edges[0].Data.Labels)

	// Groups carry no labels and keep their backing array.
	assert.Same(t, &orig.Groups[0], &out.Groups[0])
}

func TestStripLabel_NoReferenceReturnsOriginal(t *testing.T) {
	orig := sample()
	out, changed := orig.StripLabel("missing")
	assert.False(t, changed)
	assert.Same(t, &orig.Nodes[0], &out.Nodes[0])
	assert.Same(t, &orig.Edges[0], &out.Edges[0])
}

func TestReferencesLabel(t *testing.T) {
	s := sample()
	assert.True(t, s.ReferencesLabel("L2"))
	assert.False(t, s.ReferencesLabel("L9"))
}

func TestIndexes(t *testing.T) {
	s := sample()
	assert.Equal(t, 1, s.ActorIndex("a2"))
	assert.Equal(t, -1, s.ActorIndex("zz"))
	assert.Equal(t, 0, s.RelationIndex("r1"))
	assert.Equal(t, 0, s.GroupIndex("g1"))
	assert.Equal(t, 5, s.Len())
}

func TestCompare(t *testing.T) {
	base := sample()
	head := base.Clone()
	head.Nodes[0].Position = Position{X: 10, Y: 20}
	head.Nodes[0].Data.Label = "Alicia"
	head.Nodes = head.Nodes[:1]
	head.Nodes = append(head.Nodes, Actor{ID: "a9", Data: ActorData{Label: "New"}})
	head.Edges = head.Edges[:1]
	head.Groups[0].Data.ActorIDs = []string{"a1", "a9"}

	d := Compare(base, head)

	assert.Equal(t, DiffSummary{
		ActorsAdded: 1, ActorsModified: 1, ActorsRemoved: 1,
		RelationsRemoved: 1,
		GroupsModified:   1,
	}, d.Summary)

	require.Len(t, d.Elements, 5)
	assert.Equal(t, ElementDiff{Kind: KindActor, ID: "a1", Label: "Alicia", Action: ActionModified, Changes: []string{"position", "label"}}, d.Elements[0])
	assert.Equal(t, ActionRemoved, d.Elements[1].Action)
	assert.Equal(t, "a2", d.Elements[1].ID)
	assert.Equal(t, ActionAdded, d.Elements[2].Action)
	assert.Equal(t, []string{"members"}, d.Elements[4].Changes)
}

func TestCompare_Identical(t *testing.T) {
	d := Compare(sample(), sample())
	assert.True(t, d.Empty())
	assert.NotNil(t, d.Elements)
}
