// Package store defines the persistent document store used for the user
// profile and the calendar database. Implementations hold JSON documents
// keyed by name; a write is atomic with respect to its key.
package store

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Document keys used by the pipeline.
const (
	// KeyUserProfile holds the user profile document (a JSON object).
	KeyUserProfile = "user_profile"

	// KeyCalendar holds the calendar database (a JSON array of entries).
	KeyCalendar = "calendar_db"
)

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = goerr.New("document not found")

// Store is a durable key-value store of JSON documents. The interface is
// deliberately narrow: a future implementation can add locking or remote
// backends without changing callers.
type Store interface {
	// Get returns the document for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put atomically replaces the document for key. A crash mid-write must
	// never leave a half-written document readable.
	Put(ctx context.Context, key string, doc []byte) error

	// Exists reports whether a document exists for key.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases underlying resources.
	Close() error
}
