package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constellation/internal/clock"
	"constellation/internal/config"
	"constellation/internal/document"
	"constellation/internal/graph"
	"constellation/internal/kvstore"
	"constellation/internal/model"
	"constellation/internal/notify"
	"constellation/internal/timeline"
	"constellation/internal/workingstore"
)

type fixture struct {
	m       *Manager
	kv      *kvstore.Memory
	clk     *clock.Manual
	cfg     *config.Config
	toasts  *notify.Recorder
	confirm *notify.Static
}

func newFixture(t *testing.T, tweak ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = "memory"
	for _, fn := range tweak {
		fn(cfg)
	}
	f := &fixture{
		kv:      kvstore.NewMemory(0),
		clk:     clock.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		cfg:     cfg,
		toasts:  &notify.Recorder{},
		confirm: &notify.Static{Answer: true},
	}
	f.m = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(Options{Config: f.cfg, KV: f.kv, Clock: f.clk, Toaster: f.toasts, Confirmer: f.confirm})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func (f *fixture) graph() graph.Snapshot {
	var g graph.Snapshot
	f.m.View(func(_ *document.Store, _ *timeline.Engine, w *workingstore.Store) { g = w.Graph() })
	return g
}

func (f *fixture) dirty(id string) bool {
	for _, tab := range f.m.Tabs() {
		if tab.ID == id {
			return tab.Dirty
		}
	}
	return false
}

func (f *fixture) loaded(id string) bool {
	for _, tab := range f.m.Tabs() {
		if tab.ID == id {
			return tab.Loaded
		}
	}
	return false
}

func TestCreateDocumentPersistsWorkspace(t *testing.T) {
	f := newFixture(t)
	id, err := f.m.CreateDocument("Alpha")
	require.NoError(t, err)
	assert.Equal(t, id, f.m.Active())

	raw, ok, err := f.kv.Get(kvstore.WorkspaceKey)
	require.NoError(t, err)
	require.True(t, ok)
	var rec model.WorkspaceRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.NotEmpty(t, rec.WorkspaceID)
	assert.Equal(t, []string{id}, rec.DocumentOrder)
	require.NotNil(t, rec.ActiveDocumentID)
	assert.Equal(t, id, *rec.ActiveDocumentID)
	assert.Equal(t, "My Workspace", rec.WorkspaceName)
}

func TestReopenRestoresActiveDocument(t *testing.T) {
	f := newFixture(t)
	a, err := f.m.CreateDocument("A")
	require.NoError(t, err)
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "x"}))
	b, err := f.m.CreateDocument("B")
	require.NoError(t, err)
	require.NoError(t, f.m.SwitchToDocument(a))
	require.NoError(t, f.m.Close())

	m2 := f.open(t)
	f.m = m2
	assert.Equal(t, a, m2.Active())
	assert.Len(t, f.graph().Nodes, 1)
	assert.False(t, f.loaded(b), "inactive tabs load lazily")

	require.NoError(t, m2.SwitchToDocument(b))
	assert.True(t, f.loaded(b))
	assert.Empty(t, f.graph().Nodes)
}

func TestReopenDropsMissingDocuments(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	b, _ := f.m.CreateDocument("B")
	require.NoError(t, f.m.Close())
	require.NoError(t, f.kv.Remove(kvstore.MetadataKey(b)))

	m2 := f.open(t)
	rec := m2.Record()
	assert.Equal(t, []string{a}, rec.DocumentOrder)
	assert.Equal(t, a, m2.Active())
}

func TestReopenResetsUnreadableRecord(t *testing.T) {
	f := newFixture(t)
	a, err := f.m.CreateDocument("A")
	require.NoError(t, err)
	oldID := f.m.Record().WorkspaceID
	require.NoError(t, f.m.Close())
	require.NoError(t, f.kv.Set(kvstore.WorkspaceKey, "{not json"))
	f.toasts.Reset()

	m2 := f.open(t)
	rec := m2.Record()
	assert.NotEmpty(t, rec.WorkspaceID)
	assert.NotEqual(t, oldID, rec.WorkspaceID)
	assert.Empty(t, rec.DocumentOrder)
	assert.Equal(t, f.cfg.MaxOpenDocuments, rec.Settings.MaxOpenDocuments)

	last, ok := f.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Severity)

	raw, _, err := f.kv.Get(kvstore.WorkspaceKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &model.WorkspaceRecord{}))

	docs, err := m2.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, a, docs[0].ID)
}

func TestSwitchLoadsWorkingStore(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	_, err := f.m.CreateDocument("B")
	require.NoError(t, err)
	assert.Empty(t, f.graph().Nodes)

	require.NoError(t, f.m.SwitchToDocument(a))
	assert.Len(t, f.graph().Nodes, 1)
	assert.ErrorIs(t, f.m.SwitchToDocument("nope"), ErrNotOpen)
}

func TestDebouncedSave(t *testing.T) {
	f := newFixture(t)
	id, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	assert.True(t, f.dirty(id))

	f.clk.Advance(f.cfg.SaveDelay / 2)
	assert.True(t, f.dirty(id))
	f.clk.Advance(f.cfg.SaveDelay)
	assert.False(t, f.dirty(id))

	meta, ok, err := f.kv.Get(kvstore.MetadataKey(id))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, meta, `"isDirty":false`)
}

func TestSaveMaxWaitFlushesContinuousEditing(t *testing.T) {
	f := newFixture(t)
	id, _ := f.m.CreateDocument("A")
	step := 900 * time.Millisecond
	for i := 0; i < 6; i++ {
		require.NoError(t, f.m.AddActor(graph.Actor{ID: string(rune('a' + i))}))
		if i < 5 {
			f.clk.Advance(step)
		}
	}
	assert.True(t, f.dirty(id))
	f.clk.Advance(600 * time.Millisecond)
	assert.False(t, f.dirty(id), "max wait forces a save mid-burst")
}

func TestAutoSaveDisabled(t *testing.T) {
	f := newFixture(t)
	id, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.SetAutoSave(false))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	f.clk.Advance(time.Minute)
	assert.True(t, f.dirty(id))

	require.NoError(t, f.m.SaveDocument(id))
	assert.False(t, f.dirty(id))
}

func TestDeferredUnload(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	b, _ := f.m.CreateDocument("B")
	assert.True(t, f.loaded(a))

	f.clk.Advance(f.cfg.UnloadAfter)
	assert.False(t, f.loaded(a))
	assert.True(t, f.loaded(b), "active document stays loaded")

	require.NoError(t, f.m.SwitchToDocument(a))
	assert.True(t, f.loaded(a))
}

func TestUnloadCancelledOnActivate(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	b, _ := f.m.CreateDocument("B")

	f.clk.Advance(f.cfg.UnloadAfter - time.Minute)
	require.NoError(t, f.m.SwitchToDocument(a))
	f.clk.Advance(2 * time.Minute)
	assert.True(t, f.loaded(a))
	assert.True(t, f.loaded(b), "b's timer was armed only when it became inactive")

	f.clk.Advance(f.cfg.UnloadAfter)
	assert.False(t, f.loaded(b))
}

func TestDirtyDocumentIsNotUnloaded(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.SetAutoSave(false))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	_, _ = f.m.CreateDocument("B")

	f.clk.Advance(f.cfg.UnloadAfter * 2)
	assert.True(t, f.loaded(a))
	assert.True(t, f.dirty(a))
}

func TestCloseDirtyNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	b, _ := f.m.CreateDocument("B")
	require.NoError(t, f.m.SetAutoSave(false))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "b1"}))

	f.confirm.Answer = false
	err := f.m.CloseDocument(context.Background(), b)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Len(t, f.m.Tabs(), 2)
	require.Len(t, f.confirm.Asked(), 1)
	assert.Equal(t, "Unsaved changes", f.confirm.Asked()[0].Title)

	f.confirm.Answer = true
	require.NoError(t, f.m.CloseDocument(context.Background(), b))
	assert.Len(t, f.m.Tabs(), 1)
	assert.Equal(t, a, f.m.Active())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	assert.ErrorIs(t, f.m.CloseDocument(ctx, a), context.Canceled)
}

func TestCloseCleanDocumentSkipsConfirmation(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.CloseDocument(context.Background(), a))
	assert.Empty(t, f.confirm.Asked())
	assert.Empty(t, f.m.Active())
	assert.Nil(t, f.m.Record().ActiveDocumentID)

	// Stored documents survive closing.
	require.NoError(t, f.m.OpenDocument(a))
	assert.Equal(t, a, f.m.Active())
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")

	f.confirm.Answer = false
	assert.ErrorIs(t, f.m.DeleteDocument(context.Background(), a), ErrNotConfirmed)
	_, ok, _ := f.kv.Get(kvstore.DocumentKey(a))
	assert.True(t, ok)

	f.confirm.Answer = true
	require.NoError(t, f.m.DeleteDocument(context.Background(), a))
	_, ok, _ = f.kv.Get(kvstore.DocumentKey(a))
	assert.False(t, ok)
	_, ok, _ = f.kv.Get(kvstore.MetadataKey(a))
	assert.False(t, ok)
	assert.Empty(t, f.m.Tabs())
	last, _ := f.toasts.Last()
	assert.Equal(t, notify.Success, last.Severity)
}

func TestTooManyOpen(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MaxOpenDocuments = 2 })
	_, err := f.m.CreateDocument("A")
	require.NoError(t, err)
	_, err = f.m.CreateDocument("B")
	require.NoError(t, err)
	_, err = f.m.CreateDocument("C")
	assert.ErrorIs(t, err, ErrTooManyOpen)
	last, _ := f.toasts.Last()
	assert.Equal(t, notify.Warning, last.Severity)
}

func TestTrackedActionsUndoRedo(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a2"}))
	require.NoError(t, f.m.AddRelation(graph.Relation{ID: "r1", Source: "a1", Target: "a2"}))

	desc, ok, err := f.m.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Add relation", desc)
	assert.Empty(t, f.graph().Edges)

	_, _, _ = f.m.Undo()
	_, _, _ = f.m.Undo()
	assert.Empty(t, f.graph().Nodes)
	_, ok, err = f.m.Undo()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = f.m.Redo()
	assert.True(t, ok)
	assert.Len(t, f.graph().Nodes, 1)

	require.NoError(t, f.m.AddActor(graph.Actor{ID: "z"}))
	assert.False(t, f.m.CanRedo(), "a new action clears redo")
}

func TestFailedActionRecordsNothing(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a2"}))
	_, _, _ = f.m.Undo()
	before, _ := f.m.HistoryStats()
	require.Equal(t, 1, before.RedoCount)

	err := f.m.AddActor(graph.Actor{ID: "a1"})
	assert.ErrorIs(t, err, workingstore.ErrDuplicateID)
	after, _ := f.m.HistoryStats()
	assert.Equal(t, before, after, "a failed action keeps the redo future")
}

func TestSwitchToCurrentStateIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	root := f.m.Tree()[0].State.ID
	require.NoError(t, f.m.SwitchState(root))
	st, _ := f.m.HistoryStats()
	assert.Zero(t, st.UndoCount)

	b, err := f.m.CreateState("B", "", true)
	require.NoError(t, err)
	require.NoError(t, f.m.SwitchState(root))
	require.NoError(t, f.m.SwitchState(root))
	st, _ = f.m.HistoryStats()
	assert.Equal(t, 2, st.UndoCount)

	_, _, _ = f.m.Undo()
	assert.True(t, f.m.Tree()[1].Current)
	assert.Equal(t, b, f.m.Tree()[1].State.ID)
}

func TestMoveActorCoalesces(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	for i := 1; i <= 5; i++ {
		require.NoError(t, f.m.MoveActor("a1", graph.Position{X: float64(i)}))
		f.clk.Advance(100 * time.Millisecond)
	}
	st, _ := f.m.HistoryStats()
	assert.Equal(t, 2, st.UndoCount)

	f.clk.Advance(f.cfg.DragWindow)
	require.NoError(t, f.m.MoveActor("a1", graph.Position{X: 10}))
	st, _ = f.m.HistoryStats()
	assert.Equal(t, 3, st.UndoCount)

	_, _, _ = f.m.Undo()
	assert.Equal(t, 5.0, f.graph().Nodes[0].Position.X)
	_, _, _ = f.m.Undo()
	assert.Equal(t, 0.0, f.graph().Nodes[0].Position.X)

	assert.Error(t, f.m.MoveActor("ghost", graph.Position{}))
	st, _ = f.m.HistoryStats()
	assert.Equal(t, 1, st.UndoCount)
}

func TestDeleteStateWithChildrenNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	root := f.m.Tree()[0].State.ID
	a, _ := f.m.CreateState("A", "", true)
	_, _ = f.m.CreateState("A1", "", true)
	require.NoError(t, f.m.SwitchState(root))

	f.confirm.Answer = false
	assert.ErrorIs(t, f.m.DeleteState(context.Background(), a), ErrNotConfirmed)
	assert.Len(t, f.m.Tree(), 3)

	f.confirm.Answer = true
	require.NoError(t, f.m.DeleteState(context.Background(), a))
	tree := f.m.Tree()
	require.Len(t, tree, 2)
	assert.Equal(t, root, tree[1].State.ParentStateID)
	assert.Equal(t, 1, tree[1].Depth)

	_, _, err := f.m.Undo()
	require.NoError(t, err)
	assert.Len(t, f.m.Tree(), 3)

	assert.ErrorIs(t, f.m.DeleteState(context.Background(), root), timeline.ErrRootState)
}

func TestDeleteLabelUndo(t *testing.T) {
	f := newFixture(t)
	_, _ = f.m.CreateDocument("A")
	require.NoError(t, f.m.AddLabel(model.LabelConfig{ID: "L1", Name: "One"}))
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1", Data: graph.ActorData{Labels: []string{"L1"}}}))
	_, err := f.m.CreateState("B", "", true)
	require.NoError(t, err)

	require.NoError(t, f.m.DeleteLabel("L1"))
	for _, n := range f.m.Tree() {
		assert.False(t, n.State.Graph.ReferencesLabel("L1"))
	}
	_, _, err = f.m.Undo()
	require.NoError(t, err)
	for _, n := range f.m.Tree() {
		assert.True(t, n.State.Graph.ReferencesLabel("L1"))
	}
	assert.True(t, f.graph().ReferencesLabel("L1"))
}

func TestUndoSchedulesSave(t *testing.T) {
	f := newFixture(t)
	id, _ := f.m.CreateDocument("A")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))
	f.clk.Advance(f.cfg.SaveMaxWait)
	require.False(t, f.dirty(id))

	_, _, err := f.m.Undo()
	require.NoError(t, err)
	assert.True(t, f.dirty(id))
	f.clk.Advance(f.cfg.SaveMaxWait)
	assert.False(t, f.dirty(id))
}

func TestReorderDocuments(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("A")
	b, _ := f.m.CreateDocument("B")
	require.NoError(t, f.m.ReorderDocuments([]string{b, a}))
	assert.Equal(t, []string{b, a}, f.m.Record().DocumentOrder)

	assert.ErrorIs(t, f.m.ReorderDocuments([]string{a}), ErrBadOrder)
	assert.ErrorIs(t, f.m.ReorderDocuments([]string{a, a}), ErrBadOrder)
	assert.ErrorIs(t, f.m.ReorderDocuments([]string{a, "x"}), ErrBadOrder)
}

func TestExportImportFiles(t *testing.T) {
	f := newFixture(t)
	a, _ := f.m.CreateDocument("Power Map")
	require.NoError(t, f.m.AddActor(graph.Actor{ID: "a1"}))

	dir := t.TempDir()
	path := filepath.Join(dir, "power-map.json")
	digest, err := f.m.ExportDocument(a, path)
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	imported, err := f.m.ImportFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, a, imported)
	assert.Equal(t, imported, f.m.Active())
	assert.Len(t, f.graph().Nodes, 1)

	recent := f.m.Record().Settings.RecentFiles
	require.Len(t, recent, 1)
	assert.Equal(t, imported, recent[0].DocumentID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{}`), 0644))
	results, err := f.m.ImportGlob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Len(t, f.m.Tabs(), 3)
}

func TestNoActiveDocument(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.m.AddActor(graph.Actor{ID: "a"}), ErrNoActiveDocument)
	_, _, err := f.m.Undo()
	assert.ErrorIs(t, err, ErrNoActiveDocument)
	assert.Empty(t, f.m.Tree())
}
