// Package kvstore is the key/value persistence collaborator. Every backend
// stores opaque string values under string keys; a Set may fail, for
// example when a storage quota is exhausted.
package kvstore

import (
	"errors"
	"strings"
)

var (
	// ErrQuotaExceeded is returned by Set when the backend is out of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrUnavailable is returned when the backend cannot be reached, for
	// example after it was closed.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrNotListable is returned when the backend cannot enumerate keys.
	ErrNotListable = errors.New("storage cannot list keys")
)

// Store is the minimal persistence contract. Get reports ok=false for a
// missing key.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Lister is implemented by backends that can enumerate keys.
type Lister interface {
	Keys(prefix string) ([]string, error)
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}

const keyPrefix = "constellation:"

// WorkspaceKey holds the workspace record.
const WorkspaceKey = keyPrefix + "workspace"

// DocumentPrefix prefixes every per-document key.
const DocumentPrefix = keyPrefix + "document:"

const metadataSuffix = ":metadata"

// DocumentKey is where a document's serialized form lives.
func DocumentKey(id string) string {
	return DocumentPrefix + id
}

// MetadataKey is where a document's metadata record lives.
func MetadataKey(id string) string {
	return DocumentPrefix + id + metadataSuffix
}

// DocumentIDFromKey extracts the id from a DocumentKey. Metadata keys and
// foreign keys report ok=false.
func DocumentIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, DocumentPrefix) || strings.HasSuffix(key, metadataSuffix) {
		return "", false
	}
	id := strings.TrimPrefix(key, DocumentPrefix)
	return id, id != ""
}

// DocumentIDs lists stored document ids. It fails with ErrNotListable when
// s cannot enumerate keys.
func DocumentIDs(s Store) ([]string, error) {
	l, ok := s.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	keys, err := l.Keys(DocumentPrefix)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		if id, ok := DocumentIDFromKey(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Close releases s when it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
