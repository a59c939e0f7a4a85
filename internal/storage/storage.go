package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record id is not present in a collection.
var ErrNotFound = errors.New("record not found")

// Stamp identifies one version of a stored blob. Two equal stamps mean the
// blob has not been rewritten in between.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// DataStore defines the operations needed for persisting collection blobs.
// It is the server-side stand-in for per-browser key-value storage: one
// opaque JSON document per key, replaced as a whole on every write.
type DataStore interface {
	// Load returns the raw blob for key. A missing key yields an error
	// wrapping os.ErrNotExist.
	Load(key string) ([]byte, error)

	// Save replaces the blob for key.
	Save(key string, data []byte) error

	// Remove deletes the blob for key. Removing a missing key is not an error.
	Remove(key string) error

	// Keys lists every stored key.
	Keys() ([]string, error)

	// Stamp reports the current version of key's blob.
	Stamp(key string) (Stamp, error)

	// GetBasePath returns the storage base path ("" for non-file stores).
	GetBasePath() string
}
