// Package leveldb is a LevelDB-backed store for setups that outgrow flat
// JSON files. LevelDB batches are committed atomically, which satisfies the
// per-key atomicity the Store contract requires.
package leveldb

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/k-nishimoto/untangle/store"
)

// LevelStore wraps a goleveldb database.
type LevelStore struct {
	db *leveldb.DB
}

// New opens (or creates) the database at path.
func New(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open leveldb", goerr.V("path", path))
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, goerr.Wrap(store.ErrNotFound, key)
		}
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("key", key))
	}
	return doc, nil
}

func (s *LevelStore) Put(ctx context.Context, key string, doc []byte) error {
	if err := s.db.Put([]byte(key), doc, nil); err != nil {
		return goerr.Wrap(err, "failed to write document", goerr.V("key", key))
	}
	return nil
}

func (s *LevelStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.db.Has([]byte(key), nil)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check document", goerr.V("key", key))
	}
	return ok, nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
