package chunkarray

import "fmt"

// Mode is the access mode a File was opened with. It replaces the six
// mode strings of the original API with a tagged variant carrying the
// predicates callers actually need (DESIGN NOTES: "Mode flags"); the raw
// string is only accepted at parse time, in ParseMode.
type Mode int

const (
	// ModeRead opens an existing container read-only.
	ModeRead Mode = iota + 1
	// ModeReadWrite opens an existing container for read and mutation.
	ModeReadWrite
	// ModeAppend opens an existing container, or creates one, for mutation.
	ModeAppend
	// ModeWrite creates a container, truncating any existing one at the path.
	ModeWrite
	// ModeExclusive creates a new container; it is an error if one exists.
	ModeExclusive
)

// ParseMode accepts the canonical mode strings from spec.md §4.6. "x" is
// an alias for "w-".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "r+":
		return ModeReadWrite, nil
	case "a":
		return ModeAppend, nil
	case "w":
		return ModeWrite, nil
	case "w-", "x":
		return ModeExclusive, nil
	default:
		return 0, newErr(KindInvalidArgument, "parse_mode", s, fmt.Errorf("unknown mode %q", s))
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeReadWrite:
		return "r+"
	case ModeAppend:
		return "a"
	case ModeWrite:
		return "w"
	case ModeExclusive:
		return "w-"
	default:
		return "?"
	}
}

// CanOpenExisting reports whether an existing container at the target path
// may be opened in this mode without first being removed.
func (m Mode) CanOpenExisting() bool {
	switch m {
	case ModeRead, ModeReadWrite, ModeAppend, ModeWrite:
		return true
	default: // ModeExclusive
		return false
	}
}

// CanCreate reports whether this mode may create a container that doesn't
// yet exist.
func (m Mode) CanCreate() bool {
	return m != ModeRead && m != ModeReadWrite
}

// MustTruncate reports whether opening an existing container in this mode
// discards its prior contents.
func (m Mode) MustTruncate() bool { return m == ModeWrite }

// MustNotExist reports whether this mode requires the target path to be
// absent, failing with AlreadyExists otherwise.
func (m Mode) MustNotExist() bool { return m == ModeExclusive }

// CanWrite reports whether any mutation (metadata or chunk) is permitted.
func (m Mode) CanWrite() bool { return m != ModeRead }
