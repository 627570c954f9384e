// Package chunkarray stores and retrieves large N-dimensional numerical
// arrays as a grid of independently compressed chunks, in either of two
// interchangeable on-disk layouts: format Z (zarr-compatible) and format
// N (n5-compatible).
package chunkarray

import (
	"context"
	"sync"

	"golang.org/x/xerrors"

	"chunkarray/internal/blobstore"
	"chunkarray/internal/metadata"
)

// Format selects a container's on-disk layout. It is fixed at creation
// and never changes for the life of the container (spec.md §3).
type Format = metadata.Format

const (
	FormatZ = metadata.FormatZ
	FormatN = metadata.FormatN
)

// DType names a dataset's element type.
type DType = metadata.DType

const (
	Int8    = metadata.Int8
	Int16   = metadata.Int16
	Int32   = metadata.Int32
	Int64   = metadata.Int64
	Uint8   = metadata.Uint8
	Uint16  = metadata.Uint16
	Uint32  = metadata.Uint32
	Uint64  = metadata.Uint64
	Float32 = metadata.Float32
	Float64 = metadata.Float64
)

const (
	rootGroupMarkerZ = ".zgroup"
	rootAttrsN       = "attributes.json"
)

// File is the root container handle (spec.md §3's "Container"): it owns
// the Blob Store for the container's lifetime, and Groups/Datasets
// beneath it only borrow a reference to it.
type File struct {
	store  blobstore.Store
	format Format
	mode   Mode

	mu sync.Mutex // guards attribute read-modify-write (spec.md §5)
}

// Open opens or creates a filesystem-backed container at root in mode.
// createFormat selects the on-disk layout used if a new container is
// created; it is ignored when opening an existing container, whose
// format is detected from its root marker.
func Open(ctx context.Context, root string, mode Mode, createFormat Format) (*File, error) {
	return OpenStore(ctx, blobstore.NewFSStore(root), mode, createFormat)
}

// OpenStore opens or creates a container backed by an arbitrary Blob
// Store (filesystem or object store).
func OpenStore(ctx context.Context, store blobstore.Store, mode Mode, createFormat Format) (*File, error) {
	existingFormat, exists, err := detectFormat(ctx, store)
	if err != nil {
		return nil, newErr(KindIOError, "open", "", err)
	}

	switch {
	case exists && mode.MustNotExist():
		return nil, newErr(KindAlreadyExists, "open", "", nil)
	case !exists && !mode.CanCreate():
		return nil, newErr(KindNotFound, "open", "", nil)
	case exists && mode.MustTruncate():
		if err := truncateContainer(ctx, store); err != nil {
			return nil, newErr(KindIOError, "open", "", err)
		}
		exists = false
	}

	f := &File{store: store, mode: mode}
	if exists {
		f.format = existingFormat
		return f, nil
	}

	f.format = createFormat
	if err := writeRootMarker(ctx, store, createFormat); err != nil {
		return nil, newErr(KindIOError, "open", "", err)
	}
	return f, nil
}

func detectFormat(ctx context.Context, store blobstore.Store) (Format, bool, error) {
	if ok, err := store.Exists(ctx, rootGroupMarkerZ); err != nil {
		return 0, false, err
	} else if ok {
		return FormatZ, true, nil
	}
	if ok, err := store.Exists(ctx, rootAttrsN); err != nil {
		return 0, false, err
	} else if ok {
		raw, err := store.Read(ctx, rootAttrsN)
		if err != nil {
			return 0, false, err
		}
		if err := checkN5Version(raw); err != nil {
			return 0, false, err
		}
		return FormatN, true, nil
	}
	return 0, false, nil
}

func checkN5Version(raw []byte) error {
	meta, attrs, err := metadata.UnmarshalN5Attributes(raw)
	_ = meta
	if err != nil {
		return err
	}
	v, ok := attrs["n5"].(string)
	if !ok || v == "" {
		return nil // legacy roots may omit the version entirely
	}
	major := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			break
		}
		major = major*10 + int(c-'0')
	}
	if major > 2 {
		return newErr(KindVersionError, "open", "", errf("unsupported n5 version %q", v))
	}
	return nil
}

func writeRootMarker(ctx context.Context, store blobstore.Store, format Format) error {
	if format == FormatZ {
		return store.Write(ctx, rootGroupMarkerZ, metadata.MarshalZGroup())
	}
	return store.Write(ctx, rootAttrsN, metadata.MarshalN5RootMarker())
}

func truncateContainer(ctx context.Context, store blobstore.Store) error {
	return store.Remove(ctx, "")
}

// Root returns the container's root Group.
func (f *File) Root() *Group { return &Group{file: f, path: ""} }

// Format reports which on-disk layout this container uses.
func (f *File) Format() Format { return f.format }

// Mode reports the mode this container was opened with.
func (f *File) Mode() Mode { return f.mode }

func (f *File) checkWritable(op, path string) error {
	if !f.mode.CanWrite() {
		return newErr(KindPermissionDenied, op, path, nil)
	}
	return nil
}

// Close is a no-op: Blob Store backends hold no per-File resources
// beyond what each operation already releases, matching the teacher's
// atexit-free build output paths. It exists so callers can defer it
// without special-casing File.
func (f *File) Close() error { return nil }

// isStoreNotFound reports whether err is the Blob Store's not-found
// sentinel, before it has been translated into a *Error.
func isStoreNotFound(err error) bool {
	return xerrors.Is(err, blobstore.ErrNotFound)
}

func wrapStoreErr(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if xerrors.Is(err, blobstore.ErrNotFound) {
		return newErr(KindNotFound, op, path, nil)
	}
	if xerrors.Is(err, blobstore.ErrDenied) {
		return newErr(KindPermissionDenied, op, path, nil)
	}
	return newErr(KindIOError, op, path, err)
}
