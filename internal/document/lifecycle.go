package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"constellation/internal/graph"
	"constellation/internal/kvstore"
	"constellation/internal/metrics"
	"constellation/internal/model"
	"constellation/internal/notify"
)

// Create builds a new document with the default catalogs and a timeline
// holding one empty root state, persists it and keeps it loaded.
func (s *Store) Create(title string) (string, error) {
	id := s.newID()
	if title == "" {
		title = "Untitled Analysis"
	}
	now := s.clock.Now()
	doc := model.NewDocument(id, title, now, s.defaultNodeTypes, s.defaultEdgeTypes)
	if _, err := s.tl.InitializeTimeline(id, graph.Empty()); err != nil {
		return "", fmt.Errorf("create %s: %w", id, err)
	}
	s.install(id, doc, &model.DocumentMetadata{ID: id, Title: title, LastModified: model.Timestamp(now)})
	if err := s.saveAll("create", id); err != nil {
		s.forget(id)
		return "", err
	}
	s.logger.Info("document created", "document", id, "title", title)
	return id, nil
}

func (s *Store) install(id string, doc *model.ConstellationDocument, meta *model.DocumentMetadata) {
	doc.Normalize()
	s.docs[id] = doc
	s.meta[id] = meta
	s.indexBibliography(id, doc.Bibliography)
}

func (s *Store) forget(id string) {
	delete(s.docs, id)
	delete(s.meta, id)
	delete(s.refs, id)
	s.tl.RemoveTimeline(id)
	if s.active == id {
		s.Deactivate()
	}
}

// Load reads a document from storage. A document that fails validation is
// logged and reported; the rest of the workspace stays usable.
func (s *Store) Load(documentID string) (*model.ConstellationDocument, error) {
	if doc, ok := s.docs[documentID]; ok {
		return doc, nil
	}
	raw, ok, err := s.kv.Get(kvstore.DocumentKey(documentID))
	if err != nil {
		s.metrics.Load(metrics.ResultError)
		return nil, fmt.Errorf("load %s: %w", documentID, err)
	}
	if !ok {
		s.metrics.Load(metrics.ResultError)
		return nil, fmt.Errorf("load %s: %w", documentID, ErrDocumentNotFound)
	}
	doc, err := model.ParseDocument([]byte(raw))
	if err == nil {
		err = s.tl.LoadTimeline(documentID, doc.Timeline)
	}
	if err != nil {
		s.metrics.Load(metrics.ResultError)
		s.logger.Error("failed to load document", "document", documentID, "err", err)
		s.toaster.Toast(fmt.Sprintf("Failed to load document %s: %v", documentID, err), notify.Error, 0)
		return nil, fmt.Errorf("load %s: %w", documentID, err)
	}
	doc.Metadata.DocumentID = documentID

	meta, err := s.readMetadata(documentID)
	if err != nil {
		s.logger.Warn("rebuilding document metadata", "document", documentID, "err", err)
	}
	if meta == nil {
		meta = &model.DocumentMetadata{ID: documentID, Title: doc.Metadata.Title, LastModified: doc.Metadata.UpdatedAt}
	}
	s.install(documentID, doc, meta)
	s.metrics.Load(metrics.ResultOK)
	if t, ok := s.tl.Timeline(documentID); ok {
		s.logger.Info("document loaded", "document", documentID, "states", len(t.States))
	}
	return doc, nil
}

func (s *Store) readMetadata(documentID string) (*model.DocumentMetadata, error) {
	raw, ok, err := s.kv.Get(kvstore.MetadataKey(documentID))
	if err != nil || !ok {
		return nil, err
	}
	var meta model.DocumentMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", model.ErrCorrupted, err)
	}
	meta.ID = documentID
	return &meta, nil
}

// StoredMetadata reads a document's metadata record without loading the
// document.
func (s *Store) StoredMetadata(documentID string) (model.DocumentMetadata, error) {
	if m, ok := s.Metadata(documentID); ok {
		return m, nil
	}
	meta, err := s.readMetadata(documentID)
	if err != nil {
		return model.DocumentMetadata{}, err
	}
	if meta == nil {
		return model.DocumentMetadata{}, fmt.Errorf("metadata %s: %w", documentID, ErrDocumentNotFound)
	}
	return *meta, nil
}

// Unload drops a document from memory. Unsaved changes are lost; callers
// check IsDirty first.
func (s *Store) Unload(documentID string) {
	if !s.IsLoaded(documentID) {
		return
	}
	s.forget(documentID)
	s.logger.Info("document unloaded", "document", documentID)
}

// Save writes the document with its full timeline and its metadata and
// clears the dirty flag.
func (s *Store) Save(documentID string) error {
	if _, err := s.doc("save", documentID); err != nil {
		return err
	}
	s.docs[documentID].Metadata.UpdatedAt = model.Timestamp(s.clock.Now())
	if err := s.saveAll("save", documentID); err != nil {
		return err
	}
	s.logger.Debug("document saved", "document", documentID)
	return nil
}

func (s *Store) saveAll(op, documentID string) error {
	if err := s.persist(documentID); err != nil {
		s.toaster.Toast(fmt.Sprintf("Failed to save document: %v", err), notify.Error, 0)
		s.logger.Error("save failed", "document", documentID, "err", err)
		return &PersistenceError{Op: op, DocumentID: documentID, Err: err}
	}
	meta := s.meta[documentID]
	wasDirty := meta.IsDirty
	meta.IsDirty = false
	if err := s.writeMetadata(documentID); err != nil {
		meta.IsDirty = wasDirty
		s.toaster.Toast(fmt.Sprintf("Failed to save document metadata: %v", err), notify.Error, 0)
		return &PersistenceError{Op: op, DocumentID: documentID, Err: err}
	}
	return nil
}

func (s *Store) writeMetadata(documentID string) error {
	meta, ok := s.meta[documentID]
	if !ok {
		return fmt.Errorf("metadata %s: %w", documentID, ErrNotLoaded)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.write(kvstore.MetadataKey(documentID), "metadata", data)
}

// Rename changes the document title.
func (s *Store) Rename(documentID, title string) error {
	return s.transact("rename", documentID, func(doc *model.ConstellationDocument, tx *txn) error {
		if title == "" {
			return &model.ValidationError{Field: "title", Reason: "required"}
		}
		s.meta[documentID].Title = title
		doc.Metadata.Title = title
		tx.onCommit(func() error { return s.writeMetadata(documentID) })
		return nil
	})
}

// SetViewport records the canvas position. It does not mark the document
// dirty.
func (s *Store) SetViewport(documentID string, vp model.Viewport) error {
	meta, ok := s.meta[documentID]
	if !ok {
		return fmt.Errorf("viewport %s: %w", documentID, ErrNotLoaded)
	}
	prev := meta.Viewport
	meta.Viewport = &vp
	if err := s.writeMetadata(documentID); err != nil {
		meta.Viewport = prev
		return &PersistenceError{Op: "setViewport", DocumentID: documentID, Err: err}
	}
	return nil
}

// Duplicate copies a loaded document under a new id. The timeline is
// deep-copied, state ids are kept.
func (s *Store) Duplicate(documentID string) (string, error) {
	src, err := s.serialized(documentID)
	if err != nil {
		return "", err
	}
	data, err := model.MarshalDocument(src, false)
	if err != nil {
		return "", err
	}
	title := src.Metadata.Title + " (Copy)"
	return s.importBytes("duplicate", data, title)
}

// Import validates a serialized document and stores it under a fresh id.
// An empty title keeps the document's own title.
func (s *Store) Import(data []byte, title string) (string, error) {
	return s.importBytes("import", data, title)
}

func (s *Store) importBytes(op string, data []byte, title string) (string, error) {
	doc, err := model.ParseDocument(data)
	if err != nil {
		s.toaster.Toast(fmt.Sprintf("Failed to import document: %v", err), notify.Error, 0)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id := s.newID()
	if err := s.tl.LoadTimeline(id, doc.Timeline); err != nil {
		s.toaster.Toast(fmt.Sprintf("Failed to import document: %v", err), notify.Error, 0)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	now := s.clock.Now()
	if title != "" {
		doc.Metadata.Title = title
	}
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = "Imported Analysis"
	}
	doc.Metadata.DocumentID = id
	doc.Metadata.UpdatedAt = model.Timestamp(now)
	s.install(id, doc, &model.DocumentMetadata{ID: id, Title: doc.Metadata.Title, LastModified: model.Timestamp(now)})
	if err := s.saveAll(op, id); err != nil {
		s.forget(id)
		return "", err
	}
	s.logger.Info("document imported", "document", id, "op", op)
	return id, nil
}

// Export returns the document as pretty-printed JSON including the live
// timeline.
func (s *Store) Export(documentID string) ([]byte, error) {
	if _, err := s.doc("export", documentID); err != nil {
		return nil, err
	}
	out, err := s.serialized(documentID)
	if err != nil {
		return nil, err
	}
	return model.MarshalDocument(out, true)
}

// Delete removes a document from memory and storage.
func (s *Store) Delete(documentID string) error {
	s.forget(documentID)
	var errs []error
	for _, key := range []string{kvstore.DocumentKey(documentID), kvstore.MetadataKey(documentID)} {
		if err := s.kv.Remove(key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &PersistenceError{Op: "delete", DocumentID: documentID, Err: err}
	}
	s.logger.Info("document deleted", "document", documentID)
	return nil
}

// Summary is a listing entry.
type Summary struct {
	model.DocumentMetadata
	Loaded bool `json:"loaded"`
}

// List returns metadata for every stored or loaded document, sorted by
// title then id.
func (s *Store) List() ([]Summary, error) {
	ids, err := kvstore.DocumentIDs(s.kv)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	seen := make(map[string]bool)
	var out []Summary
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		meta, err := s.StoredMetadata(id)
		if err != nil {
			meta = model.DocumentMetadata{ID: id}
		}
		out = append(out, Summary{DocumentMetadata: meta, Loaded: s.IsLoaded(id)})
	}
	for _, id := range s.Loaded() {
		add(id)
	}
	for _, id := range ids {
		add(id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
