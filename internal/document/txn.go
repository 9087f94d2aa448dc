package document

import (
	"fmt"

	"constellation/internal/kvstore"
	"constellation/internal/metrics"
	"constellation/internal/model"
	"constellation/internal/notify"
)

// txn records how to undo the parts of a transaction that live outside
// the document's catalog fields.
type txn struct {
	undo       []func()
	commit     []func() error
	graphDirty bool
}

// onRollback registers fn to run if the transaction is rolled back.
// Functions run in reverse order.
func (t *txn) onRollback(fn func()) { t.undo = append(t.undo, fn) }

// onCommit registers a write that must succeed together with the document
// write. A failure rolls back the whole transaction, stored document
// included.
func (t *txn) onCommit(fn func() error) { t.commit = append(t.commit, fn) }

// touchGraph asks for the working store graph to be refreshed on commit
// and on rollback.
func (t *txn) touchGraph() { t.graphDirty = true }

type catalogs struct {
	nodeTypes []model.NodeTypeConfig
	edgeTypes []model.EdgeTypeConfig
	labels    []model.LabelConfig
	tangibles []model.TangibleConfig
	meta      model.DocumentMeta
}

func capture(doc *model.ConstellationDocument) catalogs {
	return catalogs{
		nodeTypes: doc.NodeTypes,
		edgeTypes: doc.EdgeTypes,
		labels:    doc.Labels,
		tangibles: doc.Tangibles,
		meta:      doc.Metadata,
	}
}

func (c catalogs) restore(doc *model.ConstellationDocument) {
	doc.NodeTypes = c.nodeTypes
	doc.EdgeTypes = c.edgeTypes
	doc.Labels = c.labels
	doc.Tangibles = c.tangibles
	doc.Metadata = c.meta
}

// transact applies mutate to a loaded document, persists it, marks it
// dirty and mirrors the result into the working store. Mutations must
// replace catalog slices rather than write into them, so capturing the
// slice headers is enough to roll back.
func (s *Store) transact(op, documentID string, mutate func(doc *model.ConstellationDocument, tx *txn) error) error {
	doc, err := s.doc(op, documentID)
	if err != nil {
		return err
	}
	meta := s.meta[documentID]
	var metaBefore model.DocumentMetadata
	if meta != nil {
		metaBefore = *meta
	}
	before := capture(doc)
	tx := &txn{}

	rollback := func() {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		before.restore(doc)
		if meta != nil {
			*meta = metaBefore
		}
	}
	fail := func(err error) error {
		s.mirror(documentID, tx.graphDirty)
		s.metrics.Transaction(op, metrics.ResultRolledBack)
		s.logger.Error("transaction rolled back", "op", op, "document", documentID, "err", err)
		s.toaster.Toast(fmt.Sprintf("Failed to save changes: %v", err), notify.Error, 0)
		return &PersistenceError{Op: op, DocumentID: documentID, Err: err}
	}

	if err := mutate(doc, tx); err != nil {
		rollback()
		return s.reject(op, err)
	}
	if err := s.persist(documentID); err != nil {
		rollback()
		return fail(err)
	}
	if len(tx.commit) > 0 && meta != nil {
		s.stampDirty(meta)
	}
	for _, fn := range tx.commit {
		if err := fn(); err != nil {
			rollback()
			if rerr := s.persist(documentID); rerr != nil {
				s.logger.Error("restoring stored document failed", "op", op, "document", documentID, "err", rerr)
			}
			return fail(err)
		}
	}
	s.MarkDirty(documentID)
	s.mirror(documentID, tx.graphDirty)
	s.metrics.Transaction(op, metrics.ResultOK)
	return nil
}

// persist writes the document, with its full timeline, to storage. The
// in-memory document is only updated once the write succeeded.
func (s *Store) persist(documentID string) error {
	out, err := s.serialized(documentID)
	if err != nil {
		return err
	}
	data, err := model.MarshalDocument(out, false)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := s.write(kvstore.DocumentKey(documentID), "document", data); err != nil {
		return err
	}
	doc := s.docs[documentID]
	doc.Timeline = out.Timeline
	doc.Bibliography = out.Bibliography
	return nil
}

func (s *Store) write(key, kind string, data []byte) error {
	err := s.kv.Set(key, string(data))
	s.metrics.Write(kind, len(data), err)
	return err
}
