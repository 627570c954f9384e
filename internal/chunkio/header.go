package chunkio

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Chunk mode values for format N's binary header (spec.md §4.3).
const (
	HeaderModeFixed  uint16 = 0
	HeaderModeVarlen uint16 = 1
)

// HeaderN is format N's big-endian chunk header: mode, dimension count,
// per-dimension block size in disk axis order, and (varlen only) the
// element count actually stored.
type HeaderN struct {
	Mode         uint16
	BlockSize    []int64 // disk axis order, i.e. reversed w.r.t. user C-order
	NumElements  uint32  // valid only when Mode == HeaderModeVarlen
}

// EncodeHeaderN renders h as the big-endian byte sequence format N writes
// ahead of a chunk's codec-encoded payload.
func EncodeHeaderN(h HeaderN) []byte {
	size := 4 + 4*len(h.BlockSize)
	if h.Mode == HeaderModeVarlen {
		size += 4
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf[0:2], h.Mode)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(h.BlockSize)))
	off := 4
	for _, d := range h.BlockSize {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(d))
		off += 4
	}
	if h.Mode == HeaderModeVarlen {
		binary.BigEndian.PutUint32(buf[off:off+4], h.NumElements)
		off += 4
	}
	return buf
}

// DecodeHeaderN parses a format N chunk header from the front of data and
// returns it along with the remaining (still codec-encoded) payload
// bytes. wantDim is the array's dimensionality, used to reject a header
// whose nDim field doesn't match (spec.md §4.4: "bad nDim" -> CorruptChunk).
func DecodeHeaderN(data []byte, wantDim int) (HeaderN, []byte, error) {
	if len(data) < 4 {
		return HeaderN{}, nil, xerrors.Errorf("chunk header: truncated (%d bytes)", len(data))
	}
	mode := binary.BigEndian.Uint16(data[0:2])
	nDim := int(binary.BigEndian.Uint16(data[2:4]))
	if nDim != wantDim {
		return HeaderN{}, nil, xerrors.Errorf("chunk header: nDim=%d, want %d", nDim, wantDim)
	}
	if mode != HeaderModeFixed && mode != HeaderModeVarlen {
		return HeaderN{}, nil, xerrors.Errorf("chunk header: unknown mode %d", mode)
	}
	need := 4 + 4*nDim
	if mode == HeaderModeVarlen {
		need += 4
	}
	if len(data) < need {
		return HeaderN{}, nil, xerrors.Errorf("chunk header: truncated (%d bytes, need %d)", len(data), need)
	}
	h := HeaderN{Mode: mode, BlockSize: make([]int64, nDim)}
	off := 4
	for i := 0; i < nDim; i++ {
		h.BlockSize[i] = int64(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
	}
	if mode == HeaderModeVarlen {
		h.NumElements = binary.BigEndian.Uint32(data[off : off+4])
		off += 4
	}
	return h, data[off:], nil
}
