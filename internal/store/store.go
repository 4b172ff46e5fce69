package store

import (
	"context"
	"fmt"
	"io"

	"github.com/inkfold/printq/internal/queue"
)

// Store persists the queue as a whole snapshot. Load returns an empty queue
// when nothing has been saved yet; Save replaces the previous snapshot.
type Store interface {
	Load(ctx context.Context) ([]queue.Job, error)
	Save(ctx context.Context, jobs []queue.Job) error
}

// Open picks a backend by name. The caller owns Close for backends that
// hold resources.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "excel":
		return NewExcelStore(path), nil
	case "json":
		return NewJSONStore(path), nil
	case "sqlite":
		return OpenSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown store backend: %s", backend)
}

// CloseStore closes the backend if it holds resources.
func CloseStore(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
