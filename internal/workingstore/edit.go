package workingstore

import (
	"fmt"

	"constellation/internal/graph"
)

// AddActor appends an actor.
func (s *Store) AddActor(a graph.Actor) error {
	return s.Apply(func(g *graph.Snapshot) error {
		if g.ActorIndex(a.ID) >= 0 {
			return fmt.Errorf("actor %s: %w", a.ID, ErrDuplicateID)
		}
		g.Nodes = append(g.Nodes, a.Clone())
		return nil
	})
}

// UpdateActor applies fn to a copy of the actor and stores the result.
func (s *Store) UpdateActor(id string, fn func(a *graph.Actor)) error {
	return s.Apply(func(g *graph.Snapshot) error {
		i := g.ActorIndex(id)
		if i < 0 {
			return fmt.Errorf("actor %s: %w", id, ErrActorNotFound)
		}
		a := g.Nodes[i].Clone()
		fn(&a)
		a.ID = id
		nodes := append([]graph.Actor(nil), g.Nodes...)
		nodes[i] = a
		g.Nodes = nodes
		return nil
	})
}

// MoveActor sets an actor's position.
func (s *Store) MoveActor(id string, pos graph.Position) error {
	return s.UpdateActor(id, func(a *graph.Actor) { a.Position = pos })
}

// RemoveActor deletes an actor together with its incident relations and
// its membership in any group.
func (s *Store) RemoveActor(id string) error {
	return s.Apply(func(g *graph.Snapshot) error {
		i := g.ActorIndex(id)
		if i < 0 {
			return fmt.Errorf("actor %s: %w", id, ErrActorNotFound)
		}
		nodes := make([]graph.Actor, 0, len(g.Nodes)-1)
		nodes = append(nodes, g.Nodes[:i]...)
		nodes = append(nodes, g.Nodes[i+1:]...)

		edges := make([]graph.Relation, 0, len(g.Edges))
		for _, r := range g.Edges {
			if r.Source != id && r.Target != id {
				edges = append(edges, r)
			}
		}

		groups := make([]graph.Group, len(g.Groups))
		for gi, grp := range g.Groups {
			groups[gi] = grp
			for _, m := range grp.Data.ActorIDs {
				if m == id {
					grp = grp.Clone()
					kept := grp.Data.ActorIDs[:0]
					for _, other := range grp.Data.ActorIDs {
						if other != id {
							kept = append(kept, other)
						}
					}
					grp.Data.ActorIDs = kept
					groups[gi] = grp
					break
				}
			}
		}
		g.Nodes, g.Edges, g.Groups = nodes, edges, groups
		return nil
	})
}

// AddRelation appends a relation. Both endpoints must exist.
func (s *Store) AddRelation(r graph.Relation) error {
	return s.Apply(func(g *graph.Snapshot) error {
		if g.RelationIndex(r.ID) >= 0 {
			return fmt.Errorf("relation %s: %w", r.ID, ErrDuplicateID)
		}
		if g.ActorIndex(r.Source) < 0 || g.ActorIndex(r.Target) < 0 {
			return fmt.Errorf("relation %s (%s -> %s): %w", r.ID, r.Source, r.Target, ErrUnknownEndpoint)
		}
		g.Edges = append(g.Edges, r.Clone())
		return nil
	})
}

// UpdateRelation applies fn to a copy of the relation. Endpoints are kept.
func (s *Store) UpdateRelation(id string, fn func(r *graph.Relation)) error {
	return s.Apply(func(g *graph.Snapshot) error {
		i := g.RelationIndex(id)
		if i < 0 {
			return fmt.Errorf("relation %s: %w", id, ErrRelationNotFound)
		}
		r := g.Edges[i].Clone()
		fn(&r)
		r.ID, r.Source, r.Target = id, g.Edges[i].Source, g.Edges[i].Target
		edges := append([]graph.Relation(nil), g.Edges...)
		edges[i] = r
		g.Edges = edges
		return nil
	})
}

// RemoveRelation deletes a relation.
func (s *Store) RemoveRelation(id string) error {
	return s.Apply(func(g *graph.Snapshot) error {
		i := g.RelationIndex(id)
		if i < 0 {
			return fmt.Errorf("relation %s: %w", id, ErrRelationNotFound)
		}
		edges := make([]graph.Relation, 0, len(g.Edges)-1)
		edges = append(edges, g.Edges[:i]...)
		g.Edges = append(edges, g.Edges[i+1:]...)
		return nil
	})
}

// AddGroup appends a group. Member actors get their ParentID set.
func (s *Store) AddGroup(grp graph.Group) error {
	return s.Apply(func(g *graph.Snapshot) error {
		if g.GroupIndex(grp.ID) >= 0 {
			return fmt.Errorf("group %s: %w", grp.ID, ErrDuplicateID)
		}
		for _, m := range grp.Data.ActorIDs {
			if g.ActorIndex(m) < 0 {
				return fmt.Errorf("group %s member %s: %w", grp.ID, m, ErrActorNotFound)
			}
		}
		nodes := append([]graph.Actor(nil), g.Nodes...)
		for _, m := range grp.Data.ActorIDs {
			nodes[g.ActorIndex(m)].ParentID = grp.ID
		}
		g.Nodes = nodes
		g.Groups = append(g.Groups, grp.Clone())
		return nil
	})
}

// RemoveGroup deletes a group. Its members stay and lose their ParentID.
func (s *Store) RemoveGroup(id string) error {
	return s.Apply(func(g *graph.Snapshot) error {
		i := g.GroupIndex(id)
		if i < 0 {
			return fmt.Errorf("group %s: %w", id, ErrGroupNotFound)
		}
		nodes := append([]graph.Actor(nil), g.Nodes...)
		for ni := range nodes {
			if nodes[ni].ParentID == id {
				nodes[ni].ParentID = ""
			}
		}
		groups := make([]graph.Group, 0, len(g.Groups)-1)
		groups = append(groups, g.Groups[:i]...)
		g.Nodes = nodes
		g.Groups = append(groups, g.Groups[i+1:]...)
		return nil
	})
}
