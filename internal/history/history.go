// Package history keeps per-document undo and redo stacks of full document
// snapshots.
//
// Collaborators call PushAction before a mutation takes effect, so the top
// of the undo stack always reflects the state just before the latest
// action. Undo and Redo swap the live document with a stored snapshot
// through a Target.
package history

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"constellation/internal/clock"
	"constellation/internal/model"
	"constellation/internal/timeline"
)

// DefaultLimit is the stack capacity used when none is configured.
const DefaultLimit = 50

// ErrNoTarget is returned when an engine without a target is asked to
// capture or restore.
var ErrNoTarget = errors.New("history target not configured")

// Snapshot is a deep, independent copy of everything undo can restore.
type Snapshot struct {
	Timeline  *timeline.Timeline
	NodeTypes []model.NodeTypeConfig
	EdgeTypes []model.EdgeTypeConfig
	Labels    []model.LabelConfig
	Tangibles []model.TangibleConfig
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		NodeTypes: model.CloneNodeTypes(s.NodeTypes),
		EdgeTypes: model.CloneEdgeTypes(s.EdgeTypes),
		Labels:    model.CloneLabels(s.Labels),
		Tangibles: model.CloneTangibles(s.Tangibles),
	}
	if s.Timeline != nil {
		out.Timeline = s.Timeline.Clone()
	}
	return out
}

// Target captures and restores live document state.
type Target interface {
	CaptureSnapshot(documentID string) (Snapshot, error)
	RestoreSnapshot(documentID string, s Snapshot) error
}

// Entry is one stack element.
type Entry struct {
	Snapshot    Snapshot
	Description string
	At          time.Time
}

type stacks struct {
	undo []Entry
	redo []Entry
}

// Options configure an Engine.
type Options struct {
	Limit  int
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine holds the stacks of every document. It is not safe for
// concurrent use.
type Engine struct {
	target Target
	limit  int
	clock  clock.Clock
	logger *slog.Logger
	docs   map[string]*stacks
}

// New creates an Engine. target may be set later with SetTarget.
func New(target Target, opts Options) *Engine {
	e := &Engine{
		target: target,
		limit:  opts.Limit,
		clock:  opts.Clock,
		logger: opts.Logger,
		docs:   make(map[string]*stacks),
	}
	if e.limit <= 0 {
		e.limit = DefaultLimit
	}
	if e.clock == nil {
		e.clock = clock.Real{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// SetTarget attaches the capture/restore target.
func (e *Engine) SetTarget(t Target) { e.target = t }

// Limit is the per-stack capacity.
func (e *Engine) Limit() int { return e.limit }

// InitializeHistory creates empty stacks for documentID if absent.
func (e *Engine) InitializeHistory(documentID string) {
	if _, ok := e.docs[documentID]; !ok {
		e.docs[documentID] = &stacks{}
	}
}

func (e *Engine) stacksFor(documentID string) *stacks {
	e.InitializeHistory(documentID)
	return e.docs[documentID]
}

// PushAction captures the live document and records it as the state before
// the action named by description. The redo stack is cleared.
func (e *Engine) PushAction(documentID, description string) error {
	if e.target == nil {
		return ErrNoTarget
	}
	snap, err := e.target.CaptureSnapshot(documentID)
	if err != nil {
		return fmt.Errorf("capturing %s before %q: %w", documentID, description, err)
	}
	e.Push(documentID, description, snap)
	return nil
}

// Push records a snapshot produced by the caller. The snapshot is copied.
func (e *Engine) Push(documentID, description string, snap Snapshot) {
	s := e.stacksFor(documentID)
	s.undo = pushBounded(s.undo, Entry{Snapshot: snap.Clone(), Description: description, At: e.clock.Now()}, e.limit)
	s.redo = nil
	e.logger.Debug("history push", "document", documentID, "action", description, "depth", len(s.undo))
}

// pushBounded appends and evicts from the front past limit.
func pushBounded(list []Entry, en Entry, limit int) []Entry {
	list = append(list, en)
	if over := len(list) - limit; over > 0 {
		n := copy(list, list[over:])
		for i := n; i < len(list); i++ {
			list[i] = Entry{}
		}
		list = list[:n]
	}
	return list
}

// DropLast discards the newest undo entry without restoring it. Used when
// the action it preceded failed and changed nothing.
func (e *Engine) DropLast(documentID string) bool {
	s, ok := e.docs[documentID]
	if !ok || len(s.undo) == 0 {
		return false
	}
	s.undo[len(s.undo)-1] = Entry{}
	s.undo = s.undo[:len(s.undo)-1]
	return true
}

// Undo restores the newest undo snapshot and moves the live state onto the
// redo stack. It returns the undone action's description; done is false
// when there is nothing to undo.
func (e *Engine) Undo(documentID string) (description string, done bool, err error) {
	return e.swap(documentID, true)
}

// Redo is the mirror of Undo.
func (e *Engine) Redo(documentID string) (description string, done bool, err error) {
	return e.swap(documentID, false)
}

func (e *Engine) swap(documentID string, undo bool) (string, bool, error) {
	s, ok := e.docs[documentID]
	if !ok {
		return "", false, nil
	}
	from, to := &s.undo, &s.redo
	if !undo {
		from, to = &s.redo, &s.undo
	}
	if len(*from) == 0 {
		return "", false, nil
	}
	if e.target == nil {
		return "", false, ErrNoTarget
	}
	top := (*from)[len(*from)-1]

	live, err := e.target.CaptureSnapshot(documentID)
	if err != nil {
		return "", false, fmt.Errorf("capturing %s: %w", documentID, err)
	}
	if err := e.target.RestoreSnapshot(documentID, top.Snapshot.Clone()); err != nil {
		return "", false, fmt.Errorf("restoring %s: %w", documentID, err)
	}
	(*from)[len(*from)-1] = Entry{}
	*from = (*from)[:len(*from)-1]
	*to = pushBounded(*to, Entry{Snapshot: live, Description: top.Description, At: e.clock.Now()}, e.limit)

	verb := "undo"
	if !undo {
		verb = "redo"
	}
	e.logger.Debug("history "+verb, "document", documentID, "action", top.Description)
	return top.Description, true, nil
}

// CanUndo reports whether an undo entry exists.
func (e *Engine) CanUndo(documentID string) bool {
	s, ok := e.docs[documentID]
	return ok && len(s.undo) > 0
}

// CanRedo reports whether a redo entry exists.
func (e *Engine) CanRedo(documentID string) bool {
	s, ok := e.docs[documentID]
	return ok && len(s.redo) > 0
}

// UndoDescription names the action Undo would revert.
func (e *Engine) UndoDescription(documentID string) string {
	if s, ok := e.docs[documentID]; ok && len(s.undo) > 0 {
		return s.undo[len(s.undo)-1].Description
	}
	return ""
}

// RedoDescription names the action Redo would reapply.
func (e *Engine) RedoDescription(documentID string) string {
	if s, ok := e.docs[documentID]; ok && len(s.redo) > 0 {
		return s.redo[len(s.redo)-1].Description
	}
	return ""
}

// Stats summarises a document's stacks.
type Stats struct {
	UndoCount int `json:"undoCount"`
	RedoCount int `json:"redoCount"`
	Limit     int `json:"limit"`
}

// Stats reports stack depths.
func (e *Engine) Stats(documentID string) Stats {
	st := Stats{Limit: e.limit}
	if s, ok := e.docs[documentID]; ok {
		st.UndoCount, st.RedoCount = len(s.undo), len(s.redo)
	}
	return st
}

// Entries lists the undo stack newest first.
func (e *Engine) Entries(documentID string) []Entry {
	s, ok := e.docs[documentID]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(s.undo))
	for i := len(s.undo) - 1; i >= 0; i-- {
		out = append(out, s.undo[i])
	}
	return out
}

// Clear empties both stacks but keeps the document registered.
func (e *Engine) Clear(documentID string) {
	if s, ok := e.docs[documentID]; ok {
		s.undo, s.redo = nil, nil
	}
}

// RemoveHistory drops a document's stacks.
func (e *Engine) RemoveHistory(documentID string) {
	delete(e.docs, documentID)
}
