package workspace

import (
	"context"
	"fmt"

	"constellation/internal/document"
	"constellation/internal/fileio"
	"constellation/internal/model"
	"constellation/internal/notify"
)

func (m *Manager) checkCapacityLocked() error {
	limit := m.record.Settings.MaxOpenDocuments
	if limit > 0 && len(m.record.DocumentOrder) >= limit {
		m.toaster.Toast(fmt.Sprintf("At most %d documents can be open; close one first", limit), notify.Warning, 0)
		return fmt.Errorf("%w (limit %d)", ErrTooManyOpen, limit)
	}
	return nil
}

// activateLocked loads id if needed and performs the document to working
// store sync.
func (m *Manager) activateLocked(id string) error {
	if !m.docs.IsLoaded(id) {
		if _, err := m.docs.Load(id); err != nil {
			return err
		}
	}
	m.cancelUnloadLocked(id)
	m.history.InitializeHistory(id)
	return m.docs.Activate(id)
}

func (m *Manager) switchLocked(id string) error {
	if !m.isOpenLocked(id) {
		return fmt.Errorf("%s: %w", id, ErrNotOpen)
	}
	prev := m.docs.Active()
	if prev == id {
		return nil
	}
	if prev != "" {
		m.drag.End(prev)
	}
	if err := m.activateLocked(id); err != nil {
		if prev != "" && m.docs.IsLoaded(prev) {
			_ = m.docs.Activate(prev)
		}
		return err
	}
	if prev != "" && m.docs.IsLoaded(prev) {
		m.scheduleUnloadLocked(prev)
	}
	m.record.ActiveDocumentID = &id
	m.logger.Info("switched document", "from", prev, "to", id)
	return m.writeRecordLocked()
}

// openTabLocked adds a loaded document as the last tab and activates it.
func (m *Manager) openTabLocked(id string) error {
	if !m.isOpenLocked(id) {
		m.record.DocumentOrder = append(m.record.DocumentOrder, id)
		m.metrics.SetOpen(len(m.record.DocumentOrder))
	}
	m.history.InitializeHistory(id)
	return m.switchLocked(id)
}

// ensureLoadedLocked loads an open but unloaded document.
func (m *Manager) ensureLoadedLocked(id string) error {
	if m.docs.IsLoaded(id) {
		return nil
	}
	_, err := m.docs.Load(id)
	return err
}

// SwitchToDocument makes an open document active.
func (m *Manager) SwitchToDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchLocked(id)
}

// CreateDocument creates a document, opens it in a new tab and activates
// it.
func (m *Manager) CreateDocument(title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkCapacityLocked(); err != nil {
		return "", err
	}
	id, err := m.docs.Create(title)
	if err != nil {
		return "", err
	}
	return id, m.openTabLocked(id)
}

// OpenDocument opens a stored document in a tab, or switches to it when it
// is already open.
func (m *Manager) OpenDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isOpenLocked(id) {
		return m.switchLocked(id)
	}
	if err := m.checkCapacityLocked(); err != nil {
		return err
	}
	if err := m.ensureLoadedLocked(id); err != nil {
		return err
	}
	return m.openTabLocked(id)
}

// dropTabLocked forgets every in-memory trace of id and activates a
// neighbouring tab when id was active.
func (m *Manager) dropTabLocked(id string) {
	wasActive := m.docs.Active() == id
	m.cancelSaveLocked(id)
	m.cancelUnloadLocked(id)
	m.drag.End(id)
	m.history.RemoveHistory(id)
	m.docs.Unload(id)

	idx := -1
	order := make([]string, 0, len(m.record.DocumentOrder))
	for i, o := range m.record.DocumentOrder {
		if o == id {
			idx = i
			continue
		}
		order = append(order, o)
	}
	m.record.DocumentOrder = order
	m.metrics.SetOpen(len(order))

	if !wasActive {
		return
	}
	m.record.ActiveDocumentID = nil
	if len(order) == 0 {
		return
	}
	if idx >= len(order) {
		idx = len(order) - 1
	}
	candidates := append([]string{order[idx]}, order...)
	for _, next := range candidates {
		if err := m.activateLocked(next); err == nil {
			m.record.ActiveDocumentID = &next
			return
		}
	}
}

// CloseDocument closes a tab. Unsaved changes require confirmation.
func (m *Manager) CloseDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isOpenLocked(id) {
		return fmt.Errorf("%s: %w", id, ErrNotOpen)
	}
	if m.docs.IsDirty(id) {
		title := m.titleLocked(id)
		ok, err := m.confirmer.Confirm(ctx, notify.ConfirmOptions{
			Title:        "Unsaved changes",
			Message:      fmt.Sprintf("%q has unsaved changes. Close it anyway?", title),
			ConfirmLabel: "Close without saving",
			CancelLabel:  "Cancel",
			Severity:     notify.Warning,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotConfirmed
		}
	}
	m.dropTabLocked(id)
	m.logger.Info("closed document", "document", id)
	return m.writeRecordLocked()
}

// DeleteDocument removes a document from the workspace and from storage
// after confirmation. Its history is dropped.
func (m *Manager) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	title := m.titleLocked(id)
	ok, err := m.confirmer.Confirm(ctx, notify.ConfirmOptions{
		Title:        "Delete document",
		Message:      fmt.Sprintf("Delete %q? This cannot be undone.", title),
		ConfirmLabel: "Delete",
		CancelLabel:  "Cancel",
		Severity:     notify.Error,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}
	if m.isOpenLocked(id) {
		m.dropTabLocked(id)
	}
	m.history.RemoveHistory(id)
	if err := m.docs.Delete(id); err != nil {
		m.toaster.Toast(fmt.Sprintf("Failed to delete document: %v", err), notify.Error, 0)
		return err
	}
	m.toaster.Toast(fmt.Sprintf("Deleted %q", title), notify.Success, 0)
	return m.writeRecordLocked()
}

func (m *Manager) titleLocked(id string) string {
	if meta, err := m.docs.StoredMetadata(id); err == nil && meta.Title != "" {
		return meta.Title
	}
	return id
}

// RenameDocument changes a document's title.
func (m *Manager) RenameDocument(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoadedLocked(id); err != nil {
		return err
	}
	return m.docs.Rename(id, title)
}

// DuplicateDocument copies a document into a new tab and activates it.
func (m *Manager) DuplicateDocument(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkCapacityLocked(); err != nil {
		return "", err
	}
	if err := m.ensureLoadedLocked(id); err != nil {
		return "", err
	}
	dup, err := m.docs.Duplicate(id)
	if err != nil {
		return "", err
	}
	return dup, m.openTabLocked(dup)
}

// ImportDocument stores serialized document data under a new id and opens
// it.
func (m *Manager) ImportDocument(data []byte, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importLocked(data, title)
}

func (m *Manager) importLocked(data []byte, title string) (string, error) {
	if err := m.checkCapacityLocked(); err != nil {
		return "", err
	}
	id, err := m.docs.Import(data, title)
	if err != nil {
		return "", err
	}
	return id, m.openTabLocked(id)
}

// ImportFile imports a document file and records it in the recent files.
func (m *Manager) ImportFile(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importFileLocked(path)
}

func (m *Manager) importFileLocked(path string) (string, error) {
	f, err := fileio.ReadFile(path)
	if err != nil {
		m.toaster.Toast(err.Error(), notify.Error, 0)
		return "", err
	}
	if f.Err != nil {
		m.toaster.Toast(fmt.Sprintf("Invalid document %s: %v", path, f.Err), notify.Error, 0)
		return "", fmt.Errorf("%s: %w", path, f.Err)
	}
	id, err := m.importLocked(f.Data, "")
	if err != nil {
		return "", err
	}
	m.logger.Info("imported file", "path", path, "document", id, "digest", f.Digest)
	m.pushRecentLocked(path, id)
	return id, m.writeRecordLocked()
}

// ImportResult reports one file of a bulk import.
type ImportResult struct {
	Path       string
	DocumentID string
	Err        error
}

// ImportGlob imports every document file matching pattern. A bad file
// does not stop the others.
func (m *Manager) ImportGlob(pattern string) ([]ImportResult, error) {
	files, err := fileio.ImportGlob(pattern)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ImportResult, 0, len(files))
	for _, f := range files {
		r := ImportResult{Path: f.Path, Err: f.Err}
		if r.Err == nil {
			r.DocumentID, r.Err = m.importLocked(f.Data, "")
		}
		if r.Err == nil {
			m.pushRecentLocked(f.Path, r.DocumentID)
		} else {
			m.logger.Warn("skipping file", "path", f.Path, "err", r.Err)
		}
		out = append(out, r)
	}
	return out, m.writeRecordLocked()
}

// ExportDocument writes a document to path and returns the file digest.
func (m *Manager) ExportDocument(id, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoadedLocked(id); err != nil {
		return "", err
	}
	data, err := m.docs.Export(id)
	if err != nil {
		return "", err
	}
	digest, err := fileio.ExportFile(path, data)
	if err != nil {
		m.toaster.Toast(fmt.Sprintf("Export failed: %v", err), notify.Error, 0)
		return "", err
	}
	m.pushRecentLocked(path, id)
	m.toaster.Toast(fmt.Sprintf("Exported to %s", path), notify.Success, 0)
	return digest, m.writeRecordLocked()
}

func (m *Manager) pushRecentLocked(path, id string) {
	m.record.Settings.PushRecent(model.RecentFile{
		Path:       path,
		DocumentID: id,
		OpenedAt:   model.Timestamp(m.clock.Now()),
	})
}

// ReorderDocuments sets the tab order. order must be a permutation of
// the open documents.
func (m *Manager) ReorderDocuments(order []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(order) != len(m.record.DocumentOrder) {
		return ErrBadOrder
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] || !m.isOpenLocked(id) {
			return ErrBadOrder
		}
		seen[id] = true
	}
	m.record.DocumentOrder = append([]string(nil), order...)
	return m.writeRecordLocked()
}

// ListDocuments lists every stored document, open or not.
func (m *Manager) ListDocuments() ([]document.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs.List()
}

// SaveDocument saves a document now, cancelling any pending debounced
// save.
func (m *Manager) SaveDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(id)
}

func (m *Manager) saveLocked(id string) error {
	m.cancelSaveLocked(id)
	if err := m.ensureLoadedLocked(id); err != nil {
		return err
	}
	if err := m.docs.Save(id); err != nil {
		return err
	}
	if id != m.docs.Active() {
		m.scheduleUnloadLocked(id)
	}
	return nil
}

// SaveAll saves every loaded dirty document.
func (m *Manager) SaveAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for _, id := range m.record.DocumentOrder {
		if !m.docs.IsLoaded(id) || !m.docs.IsDirty(id) {
			continue
		}
		if err := m.saveLocked(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetViewport records the active document's canvas position.
func (m *Manager) SetViewport(vp model.Viewport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.activeLocked()
	if err != nil {
		return err
	}
	return m.docs.SetViewport(id, vp)
}
