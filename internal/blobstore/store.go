// Package blobstore implements the abstract byte-addressed container
// contract of spec.md §4.1: exists/read/write/remove/list/relative over
// either a filesystem directory tree or an S3-compatible bucket prefix.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Read when key does not exist. Removing an
// absent key succeeds.
var ErrNotFound = errors.New("blobstore: not found")

// ErrDenied is returned when the backend refuses an operation for
// permission reasons.
var ErrDenied = errors.New("blobstore: permission denied")

// Store is the abstract byte-addressed container. Implementations must
// guarantee: writes to distinct keys are independent; a single Write
// replaces any previous content for that key without ever exposing a
// partial write to a concurrent Read (write-to-temp + atomic rename on
// filesystems, or an equivalent atomic PUT on object stores).
type Store interface {
	// Exists reports whether key names an object in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// Read returns the full content of key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data at key, replacing any previous content atomically.
	Write(ctx context.Context, key string, data []byte) error

	// Remove deletes key. For directory-like keys (a prefix with children)
	// the removal is recursive. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// List returns the immediate children of prefix (one path segment
	// below it), without a trailing separator, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Relative joins child onto the store's addressing scheme, returning
	// a key usable with the other methods.
	Relative(parent, child string) string
}

// Reader is implemented by backends that can hand back a streaming body
// instead of buffering the whole object. The chunk engine does not use
// it; it reads chunks with Store.Read.
type Reader interface {
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)
}
