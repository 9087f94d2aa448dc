// Package document owns the canonical serializable form of every loaded
// document and keeps it consistent with the timeline engine, the working
// store and persistent storage.
//
// Four sync points connect the layers:
//
//  1. Activate loads a document's current state and catalogs into the
//     working store and suppresses change detection for a settle window.
//  2. A watcher copies working-store graph changes into the active
//     document's current state, guarded by the working store's last-synced
//     document id.
//  3. Save serializes the whole timeline and the bibliography into the
//     document.
//  4. Catalog operations mutate the document first, persist it and mirror
//     the result into the working store when the document is active.
//
// Catalog operations are transactions: on a failed write every touched
// field is restored and the failure is returned as a *PersistenceError.
//
// A Store is not safe for concurrent use; the workspace serializes access.
package document

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"constellation/internal/clock"
	"constellation/internal/kvstore"
	"constellation/internal/metrics"
	"constellation/internal/model"
	"constellation/internal/notify"
	"constellation/internal/timeline"
	"constellation/internal/workingstore"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrNotLoaded         = errors.New("document not loaded")
	ErrNodeTypeNotFound  = errors.New("node type not found")
	ErrEdgeTypeNotFound  = errors.New("edge type not found")
	ErrLabelNotFound     = errors.New("label not found")
	ErrTangibleNotFound  = errors.New("tangible not found")
	ErrReferenceNotFound = errors.New("reference not found")
	ErrDuplicateID       = errors.New("id already exists")
	ErrInvalidTangible   = errors.New("invalid tangible")
)

// PersistenceError reports a failed storage write. The in-memory state was
// rolled back before it was returned.
type PersistenceError struct {
	Op         string
	DocumentID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: persisting failed: %v", e.Op, e.DocumentID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DefaultSettleWindow is how long change detection stays suppressed after
// a document is loaded into the working store.
const DefaultSettleWindow = 50 * time.Millisecond

// Options configure a Store.
type Options struct {
	KV       kvstore.Store
	Timeline *timeline.Engine
	Working  *workingstore.Store
	Toaster  notify.Toaster
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// Lock is held while timer callbacks touch shared state. The workspace
	// passes its own mutex.
	Lock sync.Locker
	// SettleWindow overrides DefaultSettleWindow. Negative disables it.
	SettleWindow time.Duration
	// OnDirty is called after a document becomes dirty.
	OnDirty func(documentID string)

	DefaultNodeTypes []model.NodeTypeConfig
	DefaultEdgeTypes []model.EdgeTypeConfig
	// NewID allocates document ids. Defaults to UUIDs.
	NewID func() string
}

// Store holds the loaded documents and their metadata.
type Store struct {
	kv      kvstore.Store
	tl      *timeline.Engine
	working *workingstore.Store
	toaster notify.Toaster
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	lock    sync.Locker
	onDirty func(string)
	newID   func() string

	defaultNodeTypes []model.NodeTypeConfig
	defaultEdgeTypes []model.EdgeTypeConfig

	docs map[string]*model.ConstellationDocument
	meta map[string]*model.DocumentMetadata
	refs map[string]map[string]model.Reference

	active    string
	settle    time.Duration
	settleT   clock.Timer
	settleGen uint64
	stopWatch func()
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// New creates a Store and subscribes its watcher to the working store.
func New(opts Options) *Store {
	s := &Store{
		kv:               opts.KV,
		tl:               opts.Timeline,
		working:          opts.Working,
		toaster:          opts.Toaster,
		clock:            opts.Clock,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		lock:             opts.Lock,
		onDirty:          opts.OnDirty,
		newID:            opts.NewID,
		defaultNodeTypes: opts.DefaultNodeTypes,
		defaultEdgeTypes: opts.DefaultEdgeTypes,
		docs:             make(map[string]*model.ConstellationDocument),
		meta:             make(map[string]*model.DocumentMetadata),
		refs:             make(map[string]map[string]model.Reference),
		settle:           opts.SettleWindow,
	}
	if s.kv == nil {
		s.kv = kvstore.NewMemory(0)
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.toaster == nil {
		s.toaster = notify.Discard{}
	}
	if s.lock == nil {
		s.lock = nopLocker{}
	}
	if s.working == nil {
		s.working = workingstore.New()
	}
	if s.tl == nil {
		s.tl = timeline.New(timeline.Options{Clock: s.clock, Logger: s.logger})
	}
	if s.newID == nil {
		s.newID = func() string { return "doc_" + uuid.NewString() }
	}
	if s.settle == 0 {
		s.settle = DefaultSettleWindow
	}
	if s.defaultNodeTypes == nil {
		s.defaultNodeTypes = model.DefaultNodeTypes()
	}
	if s.defaultEdgeTypes == nil {
		s.defaultEdgeTypes = model.DefaultEdgeTypes()
	}
	s.tl.SetWorking(s.working)
	s.tl.SetOnDirty(s.MarkDirty)
	s.stopWatch = s.working.Subscribe(s.onWorkingChange)
	return s
}

// Close detaches the watcher and stops the settle timer.
func (s *Store) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	if s.settleT != nil {
		s.settleT.Stop()
	}
}

// SetOnDirty replaces the dirty hook.
func (s *Store) SetOnDirty(fn func(string)) { s.onDirty = fn }

// Timeline returns the timeline engine.
func (s *Store) Timeline() *timeline.Engine { return s.tl }

// Working returns the working store.
func (s *Store) Working() *workingstore.Store { return s.working }

// KV returns the persistence collaborator.
func (s *Store) KV() kvstore.Store { return s.kv }

// Active returns the active document id.
func (s *Store) Active() string { return s.active }

// Get returns the live document.
func (s *Store) Get(documentID string) (*model.ConstellationDocument, bool) {
	doc, ok := s.docs[documentID]
	return doc, ok
}

// IsLoaded reports whether the document is in memory.
func (s *Store) IsLoaded(documentID string) bool {
	_, ok := s.docs[documentID]
	return ok
}

// Loaded lists loaded document ids, sorted.
func (s *Store) Loaded() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Metadata returns a copy of a document's metadata record.
func (s *Store) Metadata(documentID string) (model.DocumentMetadata, bool) {
	m, ok := s.meta[documentID]
	if !ok {
		return model.DocumentMetadata{}, false
	}
	out := *m
	if m.Viewport != nil {
		vp := *m.Viewport
		out.Viewport = &vp
	}
	return out, true
}

// IsDirty reports whether the document has unsaved changes.
func (s *Store) IsDirty(documentID string) bool {
	m, ok := s.meta[documentID]
	return ok && m.IsDirty
}

// MarkDirty flags the document as changed and notifies the dirty hook.
func (s *Store) MarkDirty(documentID string) {
	m, ok := s.meta[documentID]
	if !ok {
		return
	}
	s.stampDirty(m)
	if s.onDirty != nil {
		s.onDirty(documentID)
	}
}

func (s *Store) stampDirty(m *model.DocumentMetadata) {
	m.IsDirty = true
	m.LastModified = model.Timestamp(s.clock.Now())
}

func (s *Store) doc(op, documentID string) (*model.ConstellationDocument, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		s.toaster.Toast(fmt.Sprintf("Document %s is not loaded", documentID), notify.Warning, 0)
		return nil, fmt.Errorf("%s %s: %w", op, documentID, ErrNotLoaded)
	}
	return doc, nil
}

func (s *Store) reject(op string, err error) error {
	s.toaster.Toast(err.Error(), notify.Warning, 0)
	s.logger.Warn("operation rejected", "op", op, "err", err)
	return err
}
