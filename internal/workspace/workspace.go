// Package workspace orchestrates the open documents of a workspace: tab
// order, the active document, load and unload, debounced saving and the
// history-tracked editing actions.
//
// A Manager serializes every operation on one mutex. Timer callbacks
// (debounced saves, deferred unloads, the document settle window) take the
// same mutex, so callers never see a half-applied change.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"constellation/internal/clock"
	"constellation/internal/config"
	"constellation/internal/debounce"
	"constellation/internal/document"
	"constellation/internal/history"
	"constellation/internal/kvstore"
	"constellation/internal/metrics"
	"constellation/internal/model"
	"constellation/internal/notify"
	"constellation/internal/timeline"
	"constellation/internal/workingstore"
)

var (
	ErrNotConfirmed     = errors.New("action not confirmed")
	ErrTooManyOpen      = errors.New("too many open documents")
	ErrNoActiveDocument = errors.New("no active document")
	ErrNotOpen          = errors.New("document is not open in this workspace")
	ErrBadOrder         = errors.New("order must list every open document exactly once")
)

// Options configure a Manager. Only KV is required.
type Options struct {
	Config    *config.Config
	KV        kvstore.Store
	Toaster   notify.Toaster
	Confirmer notify.Confirmer
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Manager is the workspace orchestrator.
type Manager struct {
	mu sync.Mutex

	cfg       *config.Config
	kv        kvstore.Store
	toaster   notify.Toaster
	confirmer notify.Confirmer
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics

	working *workingstore.Store
	tl      *timeline.Engine
	docs    *document.Store
	history *history.Engine
	drag    *history.Coalescer

	record  model.WorkspaceRecord
	savers  map[string]*debounce.Debouncer
	unloads map[string]*unloadTimer
	// unloadSeq tells a fired unload timer whether it was replaced.
	unloadSeq uint64
	closed    bool
}

// Open reads the workspace record from opts.KV, creating one when absent,
// and activates the previously active document.
func Open(opts Options) (*Manager, error) {
	if opts.KV == nil {
		return nil, errors.New("workspace: KV store required")
	}
	m := &Manager{
		cfg:       opts.Config,
		kv:        opts.KV,
		toaster:   opts.Toaster,
		confirmer: opts.Confirmer,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		savers:    make(map[string]*debounce.Debouncer),
		unloads:   make(map[string]*unloadTimer),
	}
	if m.cfg == nil {
		m.cfg = config.Default()
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.toaster == nil {
		m.toaster = notify.NewLogToaster(m.logger)
	}
	if m.confirmer == nil {
		m.confirmer = &notify.Static{Answer: false}
	}

	if err := m.loadRecord(); err != nil {
		return nil, err
	}

	m.working = workingstore.New()
	m.tl = timeline.New(timeline.Options{Clock: m.clock, Logger: m.logger})
	m.docs = document.New(document.Options{
		KV:               m.kv,
		Timeline:         m.tl,
		Working:          m.working,
		Toaster:          m.toaster,
		Clock:            m.clock,
		Logger:           m.logger.With("component", "document"),
		Metrics:          m.metrics,
		Lock:             &m.mu,
		SettleWindow:     m.cfg.SettleWindow,
		OnDirty:          m.onDirty,
		DefaultNodeTypes: m.record.Settings.DefaultNodeTypes,
		DefaultEdgeTypes: m.record.Settings.DefaultEdgeTypes,
	})
	m.history = history.New(m.docs, history.Options{
		Limit:  m.cfg.HistoryLimit,
		Clock:  m.clock,
		Logger: m.logger.With("component", "history"),
	})
	m.drag = m.history.NewCoalescer(m.cfg.DragWindow)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreLocked()
	return m, nil
}

func (m *Manager) loadRecord() error {
	raw, ok, err := m.kv.Get(kvstore.WorkspaceKey)
	if err != nil {
		return fmt.Errorf("reading workspace: %w", err)
	}
	if ok {
		var rec model.WorkspaceRecord
		err := json.Unmarshal([]byte(raw), &rec)
		if err == nil {
			m.record = rec
			if m.record.Settings.MaxOpenDocuments <= 0 {
				m.record.Settings.MaxOpenDocuments = m.cfg.MaxOpenDocuments
			}
			return nil
		}
		// Stored documents are untouched; only tabs and settings are lost.
		m.logger.Error("workspace record unreadable, starting fresh",
			"err", fmt.Errorf("%w: %v", model.ErrCorrupted, err))
		m.toaster.Toast("Workspace data was corrupted and has been reset. Your documents are still available.", notify.Warning, 0)
	}
	m.record = model.WorkspaceRecord{
		WorkspaceID:   uuid.NewString(),
		WorkspaceName: m.cfg.WorkspaceName,
		DocumentOrder: []string{},
		Settings: model.WorkspaceSettings{
			MaxOpenDocuments: m.cfg.MaxOpenDocuments,
			AutoSaveEnabled:  m.cfg.AutoSave,
			DefaultNodeTypes: model.DefaultNodeTypes(),
			DefaultEdgeTypes: model.DefaultEdgeTypes(),
			RecentFiles:      []model.RecentFile{},
		},
	}
	m.logger.Info("workspace created", "workspace", m.record.WorkspaceID)
	return m.writeRecordLocked()
}

// restoreLocked drops tabs whose documents are gone and reactivates the
// previously active tab. Other tabs are loaded on first switch.
func (m *Manager) restoreLocked() {
	order := make([]string, 0, len(m.record.DocumentOrder))
	for _, id := range m.record.DocumentOrder {
		if _, err := m.docs.StoredMetadata(id); err != nil {
			m.logger.Warn("dropping missing document from workspace", "document", id, "err", err)
			continue
		}
		order = append(order, id)
	}
	changed := len(order) != len(m.record.DocumentOrder)
	m.record.DocumentOrder = order

	var want string
	if m.record.ActiveDocumentID != nil {
		want = *m.record.ActiveDocumentID
	}
	candidates := append([]string{want}, order...)
	for _, id := range candidates {
		if id == "" || !m.isOpenLocked(id) {
			continue
		}
		if err := m.activateLocked(id); err != nil {
			m.logger.Warn("could not restore document", "document", id, "err", err)
			continue
		}
		if id != want {
			changed = true
		}
		break
	}
	if m.docs.Active() == "" && m.record.ActiveDocumentID != nil {
		m.record.ActiveDocumentID = nil
		changed = true
	}
	m.metrics.SetOpen(len(m.record.DocumentOrder))
	if changed {
		_ = m.writeRecordLocked()
	}
}

func (m *Manager) writeRecordLocked() error {
	data, err := json.Marshal(m.record)
	if err != nil {
		return err
	}
	err = m.kv.Set(kvstore.WorkspaceKey, string(data))
	m.metrics.Write("workspace", len(data), err)
	if err != nil {
		m.logger.Error("saving workspace record", "err", err)
		m.toaster.Toast(fmt.Sprintf("Failed to save workspace: %v", err), notify.Error, 0)
		return fmt.Errorf("saving workspace: %w", err)
	}
	return nil
}

// Close saves dirty documents when auto-save is on, stops every timer and
// detaches from the working store. The KV store is left open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for id, d := range m.savers {
		if d.Cancel() && m.record.Settings.AutoSaveEnabled && m.docs.IsDirty(id) {
			if err := m.docs.Save(id); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for id := range m.unloads {
		m.cancelUnloadLocked(id)
	}
	for _, id := range m.record.DocumentOrder {
		m.drag.End(id)
	}
	m.docs.Close()
	errs = append(errs, m.writeRecordLocked())
	return errors.Join(errs...)
}

// Record returns a copy of the workspace record.
func (m *Manager) Record() model.WorkspaceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.record
	rec.DocumentOrder = append([]string(nil), m.record.DocumentOrder...)
	rec.Settings.RecentFiles = append([]model.RecentFile(nil), m.record.Settings.RecentFiles...)
	if m.record.ActiveDocumentID != nil {
		id := *m.record.ActiveDocumentID
		rec.ActiveDocumentID = &id
	}
	return rec
}

// SetAutoSave toggles debounced saving. Turning it off cancels pending
// saves; the documents stay dirty.
func (m *Manager) SetAutoSave(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record.Settings.AutoSaveEnabled = on
	if !on {
		for _, d := range m.savers {
			d.Cancel()
		}
	}
	return m.writeRecordLocked()
}

// Active returns the active document id, or "".
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs.Active()
}

// Tab describes one open document.
type Tab struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Dirty  bool   `json:"dirty"`
	Loaded bool   `json:"loaded"`
	Active bool   `json:"active"`
}

// Tabs lists the open documents in tab order.
func (m *Manager) Tabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, 0, len(m.record.DocumentOrder))
	for _, id := range m.record.DocumentOrder {
		t := Tab{ID: id, Loaded: m.docs.IsLoaded(id), Active: id == m.docs.Active()}
		if meta, err := m.docs.StoredMetadata(id); err == nil {
			t.Title = meta.Title
			t.Dirty = meta.IsDirty
		}
		out = append(out, t)
	}
	return out
}

// View runs fn with the workspace locked. fn may read the document store,
// the timeline and the working store but must not retain them.
func (m *Manager) View(fn func(docs *document.Store, tl *timeline.Engine, working *workingstore.Store)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.docs, m.tl, m.working)
}

// HistoryStats reports the stack depths of the active document.
func (m *Manager) HistoryStats() (history.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return history.Stats{}, err
	}
	return m.history.Stats(id), nil
}

// HistoryEntries lists the active document's undo entries, newest first.
func (m *Manager) HistoryEntries() ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return nil, err
	}
	return m.history.Entries(id), nil
}

func (m *Manager) activeLocked() (string, error) {
	id := m.docs.Active()
	if id == "" {
		m.toaster.Toast("No document is open", notify.Warning, 0)
		return "", ErrNoActiveDocument
	}
	return id, nil
}

func (m *Manager) isOpenLocked(id string) bool {
	for _, o := range m.record.DocumentOrder {
		if o == id {
			return true
		}
	}
	return false
}
