// Package metadata implements the per-array and per-group JSON metadata
// documents of spec.md §4.2 for both on-disk layouts: format Z's
// .zarray/.zattributes/.zgroup and format N's attributes.json (plus its
// legacy compressionType variant).
package metadata

import "fmt"

// Format identifies which of the two interoperable on-disk layouts an
// array or container uses. It is fixed once, at container-open time, and
// never changes (spec.md §3, Container invariant).
type Format int

const (
	FormatZ Format = iota + 1
	FormatN
)

func (f Format) String() string {
	if f == FormatZ {
		return "Z"
	}
	return "N"
}

// DType enumerates the element types spec.md §3 names.
type DType string

const (
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Size returns the element's in-memory and on-disk size in bytes.
func (d DType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether d is one of the ten supported element types.
func (d DType) Valid() bool { return d.Size() != 0 }

// zarrTypestr returns format Z's little-endian typestr, e.g. "<i4", "|u1".
func (d DType) zarrTypestr() (string, error) {
	var kind byte
	switch d {
	case Int8, Int16, Int32, Int64:
		kind = 'i'
	case Uint8, Uint16, Uint32, Uint64:
		kind = 'u'
	case Float32, Float64:
		kind = 'f'
	default:
		return "", fmt.Errorf("unsupported dtype %q", d)
	}
	size := d.Size()
	endian := byte('<')
	if size == 1 {
		endian = '|' // byte order is not applicable to single-byte types
	}
	return fmt.Sprintf("%c%c%d", endian, kind, size), nil
}

func dtypeFromZarrTypestr(s string) (DType, error) {
	if len(s) != 3 {
		return "", fmt.Errorf("malformed dtype %q", s)
	}
	kind, size := s[1], s[2]-'0'
	switch {
	case kind == 'i' && size == 1:
		return Int8, nil
	case kind == 'i' && size == 2:
		return Int16, nil
	case kind == 'i' && size == 4:
		return Int32, nil
	case kind == 'i' && size == 8:
		return Int64, nil
	case kind == 'u' && size == 1:
		return Uint8, nil
	case kind == 'u' && size == 2:
		return Uint16, nil
	case kind == 'u' && size == 4:
		return Uint32, nil
	case kind == 'u' && size == 8:
		return Uint64, nil
	case kind == 'f' && size == 4:
		return Float32, nil
	case kind == 'f' && size == 8:
		return Float64, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q", s)
	}
}

// n5TypeName returns format N's plain type name, e.g. "uint16".
func (d DType) n5TypeName() (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("unsupported dtype %q", d)
	}
	return string(d), nil
}

func dtypeFromN5TypeName(s string) (DType, error) {
	d := DType(s)
	if !d.Valid() {
		return "", fmt.Errorf("unsupported dataType %q", s)
	}
	return d, nil
}

// CompressorConfig names a codec and its codec-specific options, as
// recognized by internal/codecpipeline. Extra/unknown option keys are a
// configuration error when internal/codecpipeline builds the codec (at
// dataset create or open), not here: the metadata codec
// only round-trips the document, it doesn't validate codec semantics.
type CompressorConfig struct {
	ID      string
	Options map[string]interface{}
}

// ArrayMeta is the parsed, format-independent view of an array's
// metadata document: shape/chunks are always in user (C) order here,
// regardless of which format's on-disk representation they came from.
type ArrayMeta struct {
	Format       Format
	Shape        []int64
	Chunks       []int64
	DType        DType
	Compressor   *CompressorConfig // nil means the "raw" codec
	FillValue    float64
	DimSeparator string // format Z only; "." if unset. Format N always "/".
}

// GroupMeta is the parsed view of a group's user attributes.
type GroupMeta struct {
	Format     Format
	Attributes map[string]interface{}
}
