package graph

import (
	"reflect"
	"sort"
)

// Action represents the type of change to an element between two snapshots.
type Action string

const (
	ActionAdded    Action = "added"
	ActionModified Action = "modified"
	ActionRemoved  Action = "removed"
)

// ElementKind names the kind of graph element a diff entry refers to.
type ElementKind string

const (
	KindActor    ElementKind = "actor"
	KindRelation ElementKind = "relation"
	KindGroup    ElementKind = "group"
)

// ElementDiff describes a change to one actor, relation or group.
type ElementDiff struct {
	Kind    ElementKind `json:"kind"`
	ID      string      `json:"id"`
	Label   string      `json:"label,omitempty"`
	Action  Action      `json:"action"`
	Changes []string    `json:"changes,omitempty"` // changed fields, for modified elements
}

// DiffSummary provides aggregate counts.
type DiffSummary struct {
	ActorsAdded       int `json:"actorsAdded"`
	ActorsModified    int `json:"actorsModified"`
	ActorsRemoved     int `json:"actorsRemoved"`
	RelationsAdded    int `json:"relationsAdded"`
	RelationsModified int `json:"relationsModified"`
	RelationsRemoved  int `json:"relationsRemoved"`
	GroupsAdded       int `json:"groupsAdded"`
	GroupsModified    int `json:"groupsModified"`
	GroupsRemoved     int `json:"groupsRemoved"`
}

// Diff is the element-level comparison of two snapshots.
type Diff struct {
	Base     string        `json:"base,omitempty"` // base state id
	Head     string        `json:"head,omitempty"` // head state id
	Elements []ElementDiff `json:"elements"`
	Summary  DiffSummary   `json:"summary"`
}

// Empty reports whether the two snapshots were identical.
func (d *Diff) Empty() bool {
	return len(d.Elements) == 0
}

// Compare computes the element-level diff from base to head. Entries are
// ordered by kind (actors, relations, groups) and then by id.
func Compare(base, head Snapshot) Diff {
	var d Diff

	d.Elements = append(d.Elements, compareActors(base.Nodes, head.Nodes)...)
	d.Elements = append(d.Elements, compareRelations(base.Edges, head.Edges)...)
	d.Elements = append(d.Elements, compareGroups(base.Groups, head.Groups)...)
	if d.Elements == nil {
		d.Elements = []ElementDiff{}
	}
	d.computeSummary()
	return d
}

func (d *Diff) computeSummary() {
	d.Summary = DiffSummary{}
	for _, e := range d.Elements {
		var added, modified, removed *int
		switch e.Kind {
		case KindActor:
			added, modified, removed = &d.Summary.ActorsAdded, &d.Summary.ActorsModified, &d.Summary.ActorsRemoved
		case KindRelation:
			added, modified, removed = &d.Summary.RelationsAdded, &d.Summary.RelationsModified, &d.Summary.RelationsRemoved
		case KindGroup:
			added, modified, removed = &d.Summary.GroupsAdded, &d.Summary.GroupsModified, &d.Summary.GroupsRemoved
		default:
			continue
		}
		switch e.Action {
		case ActionAdded:
			*added++
		case ActionModified:
			*modified++
		case ActionRemoved:
			*removed++
		}
	}
}

func compareActors(base, head []Actor) []ElementDiff {
	before := make(map[string]Actor, len(base))
	for _, a := range base {
		before[a.ID] = a
	}
	after := make(map[string]Actor, len(head))
	for _, a := range head {
		after[a.ID] = a
	}

	var out []ElementDiff
	for id, b := range before {
		h, ok := after[id]
		if !ok {
			out = append(out, ElementDiff{Kind: KindActor, ID: id, Label: b.Data.Label, Action: ActionRemoved})
			continue
		}
		var changes []string
		if b.Position != h.Position {
			changes = append(changes, "position")
		}
		if b.ParentID != h.ParentID {
			changes = append(changes, "parent")
		}
		if b.Data.Type != h.Data.Type {
			changes = append(changes, "type")
		}
		if b.Data.Label != h.Data.Label {
			changes = append(changes, "label")
		}
		if b.Data.Description != h.Data.Description {
			changes = append(changes, "description")
		}
		if !sameStrings(b.Data.Labels, h.Data.Labels) {
			changes = append(changes, "labels")
		}
		if !sameStrings(b.Data.Citations, h.Data.Citations) {
			changes = append(changes, "citations")
		}
		if !sameMap(b.Data.Metadata, h.Data.Metadata) {
			changes = append(changes, "metadata")
		}
		if len(changes) > 0 {
			out = append(out, ElementDiff{Kind: KindActor, ID: id, Label: h.Data.Label, Action: ActionModified, Changes: changes})
		}
	}
	for id, h := range after {
		if _, ok := before[id]; !ok {
			out = append(out, ElementDiff{Kind: KindActor, ID: id, Label: h.Data.Label, Action: ActionAdded})
		}
	}
	sortByID(out)
	return out
}

func compareRelations(base, head []Relation) []ElementDiff {
	before := make(map[string]Relation, len(base))
	for _, r := range base {
		before[r.ID] = r
	}
	after := make(map[string]Relation, len(head))
	for _, r := range head {
		after[r.ID] = r
	}

	var out []ElementDiff
	for id, b := range before {
		h, ok := after[id]
		if !ok {
			out = append(out, ElementDiff{Kind: KindRelation, ID: id, Label: b.Data.Label, Action: ActionRemoved})
			continue
		}
		var changes []string
		if b.Source != h.Source || b.Target != h.Target {
			changes = append(changes, "endpoints")
		}
		if b.Data.Type != h.Data.Type {
			changes = append(changes, "type")
		}
		if b.Data.Label != h.Data.Label {
			changes = append(changes, "label")
		}
		if b.Data.Directionality != h.Data.Directionality {
			changes = append(changes, "directionality")
		}
		if b.Data.Strength != h.Data.Strength {
			changes = append(changes, "strength")
		}
		if !sameStrings(b.Data.Labels, h.Data.Labels) {
			changes = append(changes, "labels")
		}
		if !sameStrings(b.Data.Citations, h.Data.Citations) {
			changes = append(changes, "citations")
		}
		if !sameMap(b.Data.Metadata, h.Data.Metadata) {
			changes = append(changes, "metadata")
		}
		if len(changes) > 0 {
			out = append(out, ElementDiff{Kind: KindRelation, ID: id, Label: h.Data.Label, Action: ActionModified, Changes: changes})
		}
	}
	for id, h := range after {
		if _, ok := before[id]; !ok {
			out = append(out, ElementDiff{Kind: KindRelation, ID: id, Label: h.Data.Label, Action: ActionAdded})
		}
	}
	sortByID(out)
	return out
}

func compareGroups(base, head []Group) []ElementDiff {
	before := make(map[string]Group, len(base))
	for _, g := range base {
		before[g.ID] = g
	}
	after := make(map[string]Group, len(head))
	for _, g := range head {
		after[g.ID] = g
	}

	var out []ElementDiff
	for id, b := range before {
		h, ok := after[id]
		if !ok {
			out = append(out, ElementDiff{Kind: KindGroup, ID: id, Label: b.Data.Label, Action: ActionRemoved})
			continue
		}
		var changes []string
		if b.Position != h.Position || b.Width != h.Width || b.Height != h.Height {
			changes = append(changes, "geometry")
		}
		if b.Data.Label != h.Data.Label {
			changes = append(changes, "label")
		}
		if b.Data.Color != h.Data.Color {
			changes = append(changes, "color")
		}
		if !sameStrings(b.Data.ActorIDs, h.Data.ActorIDs) {
			changes = append(changes, "members")
		}
		if b.Data.Minimized != h.Data.Minimized {
			changes = append(changes, "minimized")
		}
		if len(changes) > 0 {
			out = append(out, ElementDiff{Kind: KindGroup, ID: id, Label: h.Data.Label, Action: ActionModified, Changes: changes})
		}
	}
	for id, h := range after {
		if _, ok := before[id]; !ok {
			out = append(out, ElementDiff{Kind: KindGroup, ID: id, Label: h.Data.Label, Action: ActionAdded})
		}
	}
	sortByID(out)
	return out
}

func sortByID(list []ElementDiff) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// sameStrings treats nil and empty as equal.
func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameMap(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
