package kvstore

import (
	"fmt"
	"log/slog"
)

// Open opens the named backend at path and wraps it with compression when
// threshold > 0. Memory ignores path.
func Open(backend, path string, threshold int, logger *slog.Logger) (Store, error) {
	var s Store
	switch backend {
	case "memory":
		s = NewMemory(0)
	case "sqlite":
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		s = db
	case "badger":
		db, err := OpenBadger(path, logger)
		if err != nil {
			return nil, err
		}
		s = db
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	if threshold <= 0 {
		return s, nil
	}
	c, err := NewCompressed(s, threshold)
	if err != nil {
		Close(s)
		return nil, err
	}
	return c, nil
}
