package graph

// Clone returns a deep copy of the snapshot. Mutating the copy, including
// label lists and metadata maps, never affects the original.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes:  make([]Actor, len(s.Nodes)),
		Edges:  make([]Relation, len(s.Edges)),
		Groups: make([]Group, len(s.Groups)),
	}
	for i, a := range s.Nodes {
		out.Nodes[i] = a.Clone()
	}
	for i, r := range s.Edges {
		out.Edges[i] = r.Clone()
	}
	for i, g := range s.Groups {
		out.Groups[i] = g.Clone()
	}
	return out
}

// Clone returns a deep copy of the actor.
func (a Actor) Clone() Actor {
	a.Data.Labels = cloneStrings(a.Data.Labels)
	a.Data.Citations = cloneStrings(a.Data.Citations)
	a.Data.Metadata = CloneMap(a.Data.Metadata)
	return a
}

// Clone returns a deep copy of the relation.
func (r Relation) Clone() Relation {
	r.Data.Labels = cloneStrings(r.Data.Labels)
	r.Data.Citations = cloneStrings(r.Data.Citations)
	r.Data.Metadata = CloneMap(r.Data.Metadata)
	return r
}

// Clone returns a deep copy of the group.
func (g Group) Clone() Group {
	g.Data.ActorIDs = cloneStrings(g.Data.ActorIDs)
	g.Data.Metadata = CloneMap(g.Data.Metadata)
	return g
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// CloneMap deep-copies a JSON-shaped map. Nested maps and slices are
// copied; scalar values are shared.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return cloneStrings(val)
	default:
		return val
	}
}
