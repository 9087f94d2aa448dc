package workspace

import (
	"constellation/internal/clock"
	"constellation/internal/debounce"
)

type unloadTimer struct {
	timer clock.Timer
	gen   uint64
}

// onDirty is the document store's dirty hook. It runs with m.mu held.
func (m *Manager) onDirty(id string) {
	if m.closed || !m.record.Settings.AutoSaveEnabled {
		return
	}
	d, ok := m.savers[id]
	if !ok {
		d = debounce.New(m.clock, m.cfg.SaveDelay, m.cfg.SaveMaxWait)
		m.savers[id] = d
	}
	d.Trigger(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.autoSaveLocked(id)
	})
}

func (m *Manager) autoSaveLocked(id string) {
	if m.closed || !m.docs.IsLoaded(id) || !m.docs.IsDirty(id) {
		return
	}
	if err := m.docs.Save(id); err != nil {
		// The document store already reported it; the document stays
		// dirty and the next edit retries.
		return
	}
	m.logger.Debug("auto-saved document", "document", id)
	if id != m.docs.Active() {
		m.scheduleUnloadLocked(id)
	}
}

func (m *Manager) cancelSaveLocked(id string) bool {
	d, ok := m.savers[id]
	if !ok {
		return false
	}
	delete(m.savers, id)
	return d.Cancel()
}

// scheduleUnloadLocked arms the deferred unload of an inactive document,
// replacing any earlier timer.
func (m *Manager) scheduleUnloadLocked(id string) {
	if m.closed || m.cfg.UnloadAfter <= 0 {
		return
	}
	m.cancelUnloadLocked(id)
	m.unloadSeq++
	gen := m.unloadSeq
	u := &unloadTimer{gen: gen}
	u.timer = m.clock.AfterFunc(m.cfg.UnloadAfter, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.reapLocked(id, gen)
	})
	m.unloads[id] = u
}

func (m *Manager) cancelUnloadLocked(id string) {
	if u, ok := m.unloads[id]; ok {
		u.timer.Stop()
		delete(m.unloads, id)
	}
}

// reapLocked unloads id if it is still idle. Dirty documents are kept and
// re-armed after their next save.
func (m *Manager) reapLocked(id string, gen uint64) {
	u, ok := m.unloads[id]
	if !ok || u.gen != gen {
		return
	}
	delete(m.unloads, id)
	if m.closed || id == m.docs.Active() || !m.docs.IsLoaded(id) {
		return
	}
	if m.docs.IsDirty(id) {
		m.logger.Debug("keeping dirty document loaded", "document", id)
		return
	}
	m.drag.End(id)
	m.docs.Unload(id)
	m.metrics.Unloaded()
	m.logger.Info("unloaded idle document", "document", id, "after", m.cfg.UnloadAfter)
}
