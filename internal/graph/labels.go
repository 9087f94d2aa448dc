package graph

// StripLabel returns the snapshot with labelID removed from every actor and
// relation label list. Elements that never referenced the label are copied
// by value without cloning their slices, and when nothing references the
// label the original snapshot is returned unchanged with changed == false.
func (s Snapshot) StripLabel(labelID string) (out Snapshot, changed bool) {
	nodes := s.Nodes
	nodesCopied := false
	for i := range s.Nodes {
		if !contains(s.Nodes[i].Data.Labels, labelID) {
			continue
		}
		if !nodesCopied {
			nodes = append([]Actor(nil), s.Nodes...)
			nodesCopied = true
		}
		changed = true
		nodes[i].Data.Labels = without(s.Nodes[i].Data.Labels, labelID)
	}

	edges := s.Edges
	edgesCopied := false
	for i := range s.Edges {
		if !contains(s.Edges[i].Data.Labels, labelID) {
			continue
		}
		if !edgesCopied {
			edges = append([]Relation(nil), s.Edges...)
			edgesCopied = true
		}
		changed = true
		edges[i].Data.Labels = without(s.Edges[i].Data.Labels, labelID)
	}

	if !changed {
		return s, false
	}
	return Snapshot{Nodes: nodes, Edges: edges, Groups: s.Groups}, true
}

// ReferencesLabel reports whether any actor or relation carries labelID.
func (s Snapshot) ReferencesLabel(labelID string) bool {
	for i := range s.Nodes {
		if contains(s.Nodes[i].Data.Labels, labelID) {
			return true
		}
	}
	for i := range s.Edges {
		if contains(s.Edges[i].Data.Labels, labelID) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
