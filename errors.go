package chunkarray

import "fmt"

// Kind identifies one of the error categories from the error taxonomy:
// absence, permission, shape/argument mismatches, data corruption and
// backend I/O failures are all distinguishable via errors.Is/errors.As.
type Kind int

const (
	// KindNotFound means a key or path is absent where presence was required.
	KindNotFound Kind = iota + 1
	// KindAlreadyExists means create was attempted in mode w-/x, or a
	// group/dataset name collides with an existing sibling.
	KindAlreadyExists
	// KindPermissionDenied means a mutation was attempted under a read-only mode.
	KindPermissionDenied
	// KindInvalidArgument means a bad shape, chunk shape, dtype, index or
	// codec configuration was supplied.
	KindInvalidArgument
	// KindMismatch means require_dataset/require_group found an incompatible
	// existing object.
	KindMismatch
	// KindCorruptChunk means a chunk's framing or decoded length is invalid.
	KindCorruptChunk
	// KindCodecError means a compression codec failed to encode or decode.
	KindCodecError
	// KindIOError means the Blob Store failed for a reason other than NotFound.
	KindIOError
	// KindVersionError means an unsupported format version tag was seen.
	KindVersionError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindPermissionDenied:
		return "permission denied"
	case KindInvalidArgument:
		return "invalid argument"
	case KindMismatch:
		return "mismatch"
	case KindCorruptChunk:
		return "corrupt chunk"
	case KindCodecError:
		return "codec error"
	case KindIOError:
		return "I/O error"
	case KindVersionError:
		return "version error"
	default:
		return "unknown error"
	}
}

// Error is the typed error the handle layer (File, Group and Dataset
// open/create/require, attribute access, and the mode check on writes)
// returns on failure; the handle layer translates Blob Store and metadata
// failures into a Kind. Chunk I/O failures inside ReadRegion, WriteRegion
// and WriteScalarRegion (and the TypedDataset methods built on them) are
// returned as the chunk engine's own wrapped errors, not as an *Error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "open", "read_chunk"
	Path string // array/group path or chunk key, when applicable
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) report whether err wraps an
// *Error of Kind k; only the Kind values are compared.
func (e *Error) Is(target error) bool {
	if k, ok := target.(*Error); ok {
		return e.Kind == k.Kind
	}
	return false
}

// newErr constructs an *Error, wrapping cause when non-nil.
func newErr(kind Kind, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// errf is a small fmt.Errorf wrapper used when constructing a newErr
// cause inline, so call sites don't need a separate "fmt" import.
func errf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// IsNotFound reports whether err is (or wraps) a KindNotFound error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsPermissionDenied reports whether err is (or wraps) a KindPermissionDenied error.
func IsPermissionDenied(err error) bool { return hasKind(err, KindPermissionDenied) }

func hasKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == k {
				return true
			}
			err = e.Err
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
