package timeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"constellation/internal/clock"
	"constellation/internal/graph"
	"constellation/internal/model"
)

var (
	ErrNoActiveDocument = errors.New("no active document")
	ErrTimelineNotFound = errors.New("timeline not found")
	ErrTimelineExists   = errors.New("timeline already initialized")
	ErrStateNotFound    = errors.New("state not found")
	ErrRootState        = errors.New("cannot delete the root state")
	ErrCurrentState     = errors.New("cannot delete the current state, switch to another state first")
	ErrHasChildren      = errors.New("state has child states, confirm to delete it and re-parent its children")
	ErrInvalidTimeline  = fmt.Errorf("%w: invalid timeline", model.ErrCorrupted)
)

// WorkingCopy is the live graph the engine flushes from and loads into.
// *workingstore.Store satisfies it.
type WorkingCopy interface {
	Graph() graph.Snapshot
	SetGraph(g graph.Snapshot)
	LastSyncedDocumentID() string
}

// Options configure an Engine. Zero values are usable.
type Options struct {
	Working WorkingCopy
	Clock   clock.Clock
	Logger  *slog.Logger
	// OnDirty is called with the document id after every mutation.
	OnDirty func(documentID string)
	// NewID allocates state ids. Defaults to prefixed ULIDs.
	NewID func() string
}

// Engine owns the timelines of all loaded documents. It is not safe for
// concurrent use.
type Engine struct {
	timelines map[string]*Timeline
	active    string

	working WorkingCopy
	clock   clock.Clock
	logger  *slog.Logger
	onDirty func(string)
	newID   func() string
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		timelines: make(map[string]*Timeline),
		working:   opts.Working,
		clock:     opts.Clock,
		logger:    opts.Logger,
		onDirty:   opts.OnDirty,
		newID:     opts.NewID,
	}
	if e.clock == nil {
		e.clock = clock.Real{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.newID == nil {
		e.newID = func() string { return "state_" + ulid.Make().String() }
	}
	return e
}

// SetWorking attaches the working copy after construction.
func (e *Engine) SetWorking(w WorkingCopy) { e.working = w }

// SetOnDirty replaces the dirty callback.
func (e *Engine) SetOnDirty(fn func(string)) { e.onDirty = fn }

// SetActiveDocument selects the document that context-keyed operations
// act on. An empty id clears the selection.
func (e *Engine) SetActiveDocument(documentID string) { e.active = documentID }

// ActiveDocument returns the selected document id.
func (e *Engine) ActiveDocument() string { return e.active }

// Has reports whether a timeline exists for documentID.
func (e *Engine) Has(documentID string) bool {
	_, ok := e.timelines[documentID]
	return ok
}

// Timeline returns the live timeline of a document. Callers must not keep
// the pointer across mutations.
func (e *Engine) Timeline(documentID string) (*Timeline, bool) {
	t, ok := e.timelines[documentID]
	return t, ok
}

func (e *Engine) activeTimeline() (*Timeline, error) {
	if e.active == "" {
		return nil, ErrNoActiveDocument
	}
	t, ok := e.timelines[e.active]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", e.active, ErrTimelineNotFound)
	}
	return t, nil
}

func (e *Engine) markDirty(documentID string) {
	if e.onDirty != nil {
		e.onDirty(documentID)
	}
}

// InitializeTimeline creates a timeline whose root wraps a deep copy of
// initial. A second call for the same document is a no-op returning
// ErrTimelineExists and the existing root id.
func (e *Engine) InitializeTimeline(documentID string, initial graph.Snapshot) (string, error) {
	if t, ok := e.timelines[documentID]; ok {
		e.logger.Warn("timeline already initialized", "document", documentID)
		return t.RootStateID, ErrTimelineExists
	}
	now := e.clock.Now()
	root := &model.State{
		ID:        e.newID(),
		Label:     "Initial State",
		Graph:     initial.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.timelines[documentID] = &Timeline{
		States:         map[string]*model.State{root.ID: root},
		CurrentStateID: root.ID,
		RootStateID:    root.ID,
	}
	return root.ID, nil
}

// LoadTimeline installs a persisted timeline. States may be stored in
// keyed or array form.
func (e *Engine) LoadTimeline(documentID string, st model.SerializedTimeline) error {
	t, err := Deserialize(st)
	if err != nil {
		return fmt.Errorf("loading timeline for %s: %w", documentID, err)
	}
	e.timelines[documentID] = t
	return nil
}

// Serialize returns the persisted form of a document's full timeline.
func (e *Engine) Serialize(documentID string) (model.SerializedTimeline, error) {
	t, ok := e.timelines[documentID]
	if !ok {
		return model.SerializedTimeline{}, fmt.Errorf("document %s: %w", documentID, ErrTimelineNotFound)
	}
	return t.Serialize()
}

// Snapshot returns a deep copy of a document's timeline.
func (e *Engine) Snapshot(documentID string) (*Timeline, bool) {
	t, ok := e.timelines[documentID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Replace installs a deep copy of t for documentID, for example when
// restoring a history snapshot.
func (e *Engine) Replace(documentID string, t *Timeline) {
	e.timelines[documentID] = t.Clone()
}

// ClearTimeline removes the active document's timeline.
func (e *Engine) ClearTimeline() {
	if e.active == "" {
		return
	}
	delete(e.timelines, e.active)
}

// RemoveTimeline drops a document's timeline, for example on unload.
func (e *Engine) RemoveTimeline(documentID string) {
	delete(e.timelines, documentID)
}

// flush writes the working copy into the current state when the working
// copy belongs to the active document.
func (e *Engine) flush(t *Timeline) {
	if e.working == nil || e.working.LastSyncedDocumentID() != e.active {
		return
	}
	if cur := t.Current(); cur != nil {
		cur.Graph = e.working.Graph()
		cur.UpdatedAt = e.clock.Now()
	}
}

func (e *Engine) show(s *model.State) {
	if e.working == nil || e.working.LastSyncedDocumentID() != e.active {
		return
	}
	e.working.SetGraph(s.Graph)
}
