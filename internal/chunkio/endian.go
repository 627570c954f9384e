package chunkio

import (
	"encoding/binary"
	"math"
)

// swapInPlace reverses byte order within every elemSize-byte element of
// buf. It is its own inverse, so the same call converts native<->disk in
// either direction for format N's big-endian element payloads.
func swapInPlace(buf []byte, elemSize int) {
	if elemSize <= 1 {
		return
	}
	for off := 0; off+elemSize <= len(buf); off += elemSize {
		e := buf[off : off+elemSize]
		for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
			e[i], e[j] = e[j], e[i]
		}
	}
}

// toBigEndian converts a native little-endian element buffer to
// big-endian disk order, as format N requires (spec.md §4.3).
func toBigEndian(buf []byte, elemSize int) []byte {
	out := append([]byte(nil), buf...)
	if isLittleEndianHost() {
		swapInPlace(out, elemSize)
	}
	return out
}

// fromBigEndian converts a big-endian disk buffer back to the host's
// native order.
func fromBigEndian(buf []byte, elemSize int) []byte {
	out := append([]byte(nil), buf...)
	if isLittleEndianHost() {
		swapInPlace(out, elemSize)
	}
	return out
}

// putLE writes the low n bytes of v into b in little-endian order, for
// building a fill-value pattern of an arbitrary integer width.
func putLE(b []byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func putLEFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putLEFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// isLittleEndianHost detects host byte order the same way encoding/binary
// itself would be used to detect it: by probing a known uint16 value,
// rather than relying on a build-tag-gated constant.
func isLittleEndianHost() bool {
	var x uint16 = 1
	b := make([]byte, 2)
	binary.NativeEndian.PutUint16(b, x)
	return b[0] == 1
}
