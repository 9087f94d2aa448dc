// Package graph provides the actor/relation graph types shown in a
// constellation, together with copy and rewrite helpers that keep timeline
// states referentially independent.
package graph

// Directionality describes how a relation is drawn and read.
type Directionality string

const (
	Directed      Directionality = "directed"
	Bidirectional Directionality = "bidirectional"
	Undirected    Directionality = "undirected"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ActorData is the payload of an actor node.
type ActorData struct {
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Labels      []string       `json:"labels,omitempty"`
	Citations   []string       `json:"citations,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Actor is a node in the graph.
type Actor struct {
	ID       string    `json:"id"`
	Position Position  `json:"position"`
	ParentID string    `json:"parentId,omitempty"` // owning group, if any
	Data     ActorData `json:"data"`
}

// RelationData is the payload of a relation edge.
type RelationData struct {
	Type           string         `json:"type"`
	Label          string         `json:"label,omitempty"`
	Directionality Directionality `json:"directionality,omitempty"`
	Strength       int            `json:"strength,omitempty"`
	Labels         []string       `json:"labels,omitempty"`
	Citations      []string       `json:"citations,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Relation is an edge between two actors.
type Relation struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	Target       string       `json:"target"`
	SourceHandle string       `json:"sourceHandle,omitempty"`
	TargetHandle string       `json:"targetHandle,omitempty"`
	Data         RelationData `json:"data"`
}

// GroupData is the payload of a group container.
type GroupData struct {
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Color       string         `json:"color,omitempty"`
	ActorIDs    []string       `json:"actorIds"`
	Minimized   bool           `json:"minimized,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Group visually clusters actors.
type Group struct {
	ID       string    `json:"id"`
	Position Position  `json:"position"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	Data     GroupData `json:"data"`
}

// Snapshot is the actor/relation graph of one timeline state.
type Snapshot struct {
	Nodes  []Actor    `json:"nodes"`
	Edges  []Relation `json:"edges"`
	Groups []Group    `json:"groups"`
}

// Empty returns a snapshot with non-nil empty slices so it encodes as
// empty JSON arrays.
func Empty() Snapshot {
	return Snapshot{Nodes: []Actor{}, Edges: []Relation{}, Groups: []Group{}}
}

// Normalize replaces nil slices with empty ones.
func (s Snapshot) Normalize() Snapshot {
	if s.Nodes == nil {
		s.Nodes = []Actor{}
	}
	if s.Edges == nil {
		s.Edges = []Relation{}
	}
	if s.Groups == nil {
		s.Groups = []Group{}
	}
	return s
}

// Len returns the total number of elements in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Nodes) + len(s.Edges) + len(s.Groups)
}

// ActorIndex returns the position of the actor with the given id, or -1.
func (s Snapshot) ActorIndex(id string) int {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// RelationIndex returns the position of the relation with the given id, or -1.
func (s Snapshot) RelationIndex(id string) int {
	for i := range s.Edges {
		if s.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// GroupIndex returns the position of the group with the given id, or -1.
func (s Snapshot) GroupIndex(id string) int {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return i
		}
	}
	return -1
}
