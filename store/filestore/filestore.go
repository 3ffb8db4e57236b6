// Package filestore is the default store backend: one JSON file per key in
// a local directory, written atomically via a temporary file and rename.
package filestore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle/store"
)

// FileStore persists each document as <dir>/<key>.json.
type FileStore struct {
	dir string
}

// New creates a FileStore rooted at dir, creating the directory if needed.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, goerr.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("dir", dir))
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the document for key, or store.ErrNotFound.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(store.ErrNotFound, key)
		}
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("key", key))
	}
	return doc, nil
}

// Put writes the document through a temporary file in the same directory and
// renames it over the target. Rename is atomic on POSIX filesystems, so a
// reader never observes a partial document.
func (s *FileStore) Put(ctx context.Context, key string, doc []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V("key", key))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write temporary file", goerr.V("key", key))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to sync temporary file", goerr.V("key", key))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary file", goerr.V("key", key))
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return goerr.Wrap(err, "failed to commit document", goerr.V("key", key))
	}
	return nil
}

// Exists reports whether a document exists for key.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := os.Stat(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to stat document", goerr.V("key", key))
	}
	return true, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}
