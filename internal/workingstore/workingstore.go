// Package workingstore holds the live graph of the active document: the
// nodes, edges and groups being edited plus the catalogs used to display
// them. It keeps no history; the timeline and document layers own
// persistence and undo.
//
// A Store is not safe for concurrent use. The workspace serializes access.
package workingstore

import (
	"errors"
	"fmt"

	"constellation/internal/graph"
	"constellation/internal/model"
)

var (
	ErrActorNotFound    = errors.New("actor not found")
	ErrRelationNotFound = errors.New("relation not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrDuplicateID      = errors.New("element id already exists")
	ErrUnknownEndpoint  = errors.New("relation endpoint does not exist")
)

// ChangeKind says which part of the store an Event touched.
type ChangeKind int

const (
	ChangeGraph ChangeKind = iota + 1
	ChangeCatalogs
	ChangeLoad
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeGraph:
		return "graph"
	case ChangeCatalogs:
		return "catalogs"
	case ChangeLoad:
		return "load"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Event is delivered to listeners after every committed change.
type Event struct {
	Kind ChangeKind
	// DocumentID is the document the store was last synced from.
	DocumentID string
	// Loading is true while the store is settling after a document load.
	Loading bool
}

// Listener observes committed changes.
type Listener func(Event)

// Catalogs are the document-level lists mirrored for display.
type Catalogs struct {
	NodeTypes []model.NodeTypeConfig
	EdgeTypes []model.EdgeTypeConfig
	Labels    []model.LabelConfig
	Tangibles []model.TangibleConfig
}

// Clone copies every catalog.
func (c Catalogs) Clone() Catalogs {
	return Catalogs{
		NodeTypes: model.CloneNodeTypes(c.NodeTypes),
		EdgeTypes: model.CloneEdgeTypes(c.EdgeTypes),
		Labels:    model.CloneLabels(c.Labels),
		Tangibles: model.CloneTangibles(c.Tangibles),
	}
}

// CatalogsOf copies the catalogs of a document.
func CatalogsOf(doc *model.ConstellationDocument) Catalogs {
	return Catalogs{
		NodeTypes: doc.NodeTypes,
		EdgeTypes: doc.EdgeTypes,
		Labels:    doc.Labels,
		Tangibles: doc.Tangibles,
	}.Clone()
}

// Store is the working copy.
type Store struct {
	graph    graph.Snapshot
	catalogs Catalogs

	loading    bool
	lastSynced string

	listeners map[int]Listener
	nextID    int
}

// New returns an empty store.
func New() *Store {
	return &Store{graph: graph.Empty(), listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Store) notify(kind ChangeKind) {
	ev := Event{Kind: kind, DocumentID: s.lastSynced, Loading: s.loading}
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fn(ev)
		}
	}
}

// Load replaces the whole store with a document's current graph and
// catalogs and enters the loading state. Listeners see one ChangeLoad
// event with Loading set. The caller ends the settle window with
// FinishLoading.
func (s *Store) Load(documentID string, g graph.Snapshot, c Catalogs) {
	s.loading = true
	s.lastSynced = documentID
	s.graph = g.Clone().Normalize()
	s.catalogs = c.Clone()
	s.notify(ChangeLoad)
}

// FinishLoading leaves the loading state.
func (s *Store) FinishLoading() {
	s.loading = false
}

// Loading reports whether a load is still settling.
func (s *Store) Loading() bool { return s.loading }

// LastSyncedDocumentID is the document the store was last loaded from.
func (s *Store) LastSyncedDocumentID() string { return s.lastSynced }

// Reset empties the store and forgets the synced document.
func (s *Store) Reset() {
	s.graph = graph.Empty()
	s.catalogs = Catalogs{}
	s.lastSynced = ""
	s.loading = false
	s.notify(ChangeLoad)
}

// Graph returns a deep copy of the live graph.
func (s *Store) Graph() graph.Snapshot {
	return s.graph.Clone()
}

// Catalogs returns a copy of the mirrored catalogs.
func (s *Store) Catalogs() Catalogs {
	return s.catalogs.Clone()
}

// SetGraph replaces the live graph, for example after undo.
func (s *Store) SetGraph(g graph.Snapshot) {
	s.graph = g.Clone().Normalize()
	s.notify(ChangeGraph)
}

// SetCatalogs mirrors document catalogs into the store.
func (s *Store) SetCatalogs(c Catalogs) {
	s.catalogs = c.Clone()
	s.notify(ChangeCatalogs)
}

// Apply runs fn against the live graph and notifies listeners when fn
// succeeds. fn must leave the graph unchanged when it returns an error.
func (s *Store) Apply(fn func(g *graph.Snapshot) error) error {
	if err := fn(&s.graph); err != nil {
		return err
	}
	s.notify(ChangeGraph)
	return nil
}
