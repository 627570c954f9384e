// Package chunkio implements the Chunk Engine of spec.md §4.4: chunk key
// derivation, on-disk framing (format Z's bare payload, format N's binary
// header), codec dispatch and the sparse (absent-chunk) read/write
// contract.
package chunkio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"chunkarray/internal/blobstore"
	"chunkarray/internal/codecpipeline"
	"chunkarray/internal/metadata"
)

// ErrCorruptChunk means a chunk's header or decoded length didn't match
// what the array's metadata predicts.
var ErrCorruptChunk = errors.New("chunkio: corrupt chunk")

// ErrCodecError means the codec pipeline failed to encode or decode a
// chunk's payload.
var ErrCodecError = errors.New("chunkio: codec error")

// ErrVarlenRequiresFormatN means a caller asked for variable-length chunk
// writes on a format Z array, which has no varlen representation.
var ErrVarlenRequiresFormatN = errors.New("chunkio: varlen chunks require format N")

// Engine reads and writes one array's chunks against a Blob Store.
type Engine struct {
	Store     blobstore.Store
	ArrayPath string
	Meta      metadata.ArrayMeta
	Codec     codecpipeline.Codec
}

// New builds an Engine from an array's parsed metadata.
func New(store blobstore.Store, arrayPath string, meta metadata.ArrayMeta) (*Engine, error) {
	codec, err := codecpipeline.New(meta.Compressor)
	if err != nil {
		return nil, xerrors.Errorf("chunk engine for %s: %w", arrayPath, err)
	}
	return &Engine{Store: store, ArrayPath: arrayPath, Meta: meta, Codec: codec}, nil
}

// Key derives the chunk file key for idx, given in user (C) axis order.
func (e *Engine) Key(idx []int64) string {
	if e.Meta.Format == metadata.FormatZ {
		sep := e.Meta.DimSeparator
		if sep == "" {
			sep = "."
		}
		var b strings.Builder
		b.WriteString(e.ArrayPath)
		b.WriteByte('/')
		for i, v := range idx {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteString(strconv.FormatInt(v, 10))
		}
		return b.String()
	}
	// Format N: disk axis order is reversed w.r.t. user C-order.
	var b strings.Builder
	b.WriteString(e.ArrayPath)
	for i := len(idx) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(strconv.FormatInt(idx[i], 10))
	}
	return b.String()
}

// BorderShape is the actual (possibly truncated) in-bounds shape of the
// chunk at idx, accounting for the array boundary — the shape callers
// must use for a direct (non-read-modify-write) full-chunk write.
func (e *Engine) BorderShape(idx []int64) []int64 { return e.borderChunkShape(idx) }

// borderChunkShape is the actual (possibly truncated) shape of the chunk
// at idx, accounting for the array boundary.
func (e *Engine) borderChunkShape(idx []int64) []int64 {
	shape := make([]int64, len(idx))
	for d := range idx {
		start := idx[d] * e.Meta.Chunks[d]
		remain := e.Meta.Shape[d] - start
		if remain > e.Meta.Chunks[d] {
			remain = e.Meta.Chunks[d]
		}
		shape[d] = remain
	}
	return shape
}

func product(shape []int64) int64 {
	n := int64(1)
	for _, s := range shape {
		n *= s
	}
	return n
}

// FillBuffer returns a buffer of the given element count, each element
// set to the array's fill value.
func (e *Engine) FillBuffer(numElements int64) []byte {
	elemSize := e.Meta.DType.Size()
	buf := make([]byte, int(numElements)*elemSize)
	if e.Meta.FillValue == 0 {
		return buf
	}
	one := encodeScalar(e.Meta.DType, e.Meta.FillValue)
	for off := 0; off < len(buf); off += elemSize {
		copy(buf[off:off+elemSize], one)
	}
	return buf
}

// BufferShape is the shape of the buffer ReadChunk/WriteChunk actually
// exchange for idx: format Z always uses the canonical chunk shape
// (edge chunks are padded on disk), format N uses the border-aware
// shape (edge chunks are stored trimmed).
func (e *Engine) BufferShape(idx []int64) []int64 {
	if e.Meta.Format == metadata.FormatZ {
		return append([]int64(nil), e.Meta.Chunks...)
	}
	return e.borderChunkShape(idx)
}

// ChunkExists reports whether idx's chunk file is present.
func (e *Engine) ChunkExists(ctx context.Context, idx []int64) (bool, error) {
	ok, err := e.Store.Exists(ctx, e.Key(idx))
	if err != nil {
		return false, xerrors.Errorf("chunk_exists %s: %w", e.Key(idx), err)
	}
	return ok, nil
}

// GetChunkShape returns idx's actual (border-aware) shape. If fromHeader
// is true and the chunk exists on format N, the shape recorded in the
// chunk's own header is used instead of the array-derived computation
// (spec.md §4.4).
func (e *Engine) GetChunkShape(ctx context.Context, idx []int64, fromHeader bool) ([]int64, error) {
	if !fromHeader || e.Meta.Format != metadata.FormatN {
		return e.borderChunkShape(idx), nil
	}
	raw, err := e.Store.Read(ctx, e.Key(idx))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return e.borderChunkShape(idx), nil
		}
		return nil, xerrors.Errorf("get_chunk_shape %s: %w", e.Key(idx), err)
	}
	h, _, err := DecodeHeaderN(raw, len(idx))
	if err != nil {
		return nil, xerrors.Errorf("get_chunk_shape %s: %w: %w", e.Key(idx), ErrCorruptChunk, err)
	}
	// header.BlockSize is disk axis order; reverse it back to user order.
	shape := make([]int64, len(h.BlockSize))
	for i, v := range h.BlockSize {
		shape[len(shape)-1-i] = v
	}
	return shape, nil
}

// ReadChunk returns idx's decoded, native-order element buffer. present
// is false when the chunk key is absent, in which case buf is filled with
// the array's fill value at BufferShape(idx): the canonical chunk shape on
// format Z, the border-aware shape on format N.
func (e *Engine) ReadChunk(ctx context.Context, idx []int64) (buf []byte, present bool, err error) {
	key := e.Key(idx)
	raw, err := e.Store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return e.FillBuffer(product(e.BufferShape(idx))), false, nil
		}
		return nil, false, xerrors.Errorf("read_chunk %s: %w", key, err)
	}

	// Cooperative cancellation point between issuing the blob read and
	// starting the decode (spec.md §5).
	if err := ctx.Err(); err != nil {
		return nil, false, xerrors.Errorf("read_chunk %s: %w", key, err)
	}

	shape := e.borderChunkShape(idx)
	elemSize := e.Meta.DType.Size()

	if e.Meta.Format == metadata.FormatZ {
		want := int(product(e.Meta.Chunks)) * elemSize // Z chunks are fixed-size on disk, border included
		decoded, derr := e.Codec.Decode(raw, want)
		if derr != nil {
			return nil, false, xerrors.Errorf("read_chunk %s: %w: %w", key, ErrCodecError, derr)
		}
		return decoded, true, nil
	}

	h, payload, herr := DecodeHeaderN(raw, len(idx))
	if herr != nil {
		return nil, false, xerrors.Errorf("read_chunk %s: %w: %w", key, ErrCorruptChunk, herr)
	}
	numElements := product(shape)
	if h.Mode == HeaderModeVarlen {
		numElements = int64(h.NumElements)
	}
	decoded, derr := e.Codec.Decode(payload, int(numElements)*elemSize)
	if derr != nil {
		return nil, false, xerrors.Errorf("read_chunk %s: %w: %w", key, ErrCodecError, derr)
	}
	return fromBigEndian(decoded, elemSize), true, nil
}

// isFillValue reports whether buf, interpreted as elements of the array's
// dtype, equals the fill value everywhere.
func (e *Engine) isFillValue(buf []byte) bool {
	elemSize := e.Meta.DType.Size()
	if len(buf)%elemSize != 0 {
		return false
	}
	one := encodeScalar(e.Meta.DType, e.Meta.FillValue)
	for off := 0; off < len(buf); off += elemSize {
		if string(buf[off:off+elemSize]) != string(one) {
			return false
		}
	}
	return true
}

// WriteChunk encodes and stores buf (native-order elements, user C-order
// shape count matching idx's border-aware shape unless varlen) at idx. If
// buf is uniformly the fill value, the chunk key is removed instead
// (spec.md §4.4's sparse invariant), matching the engine's empty-chunk
// policy.
func (e *Engine) WriteChunk(ctx context.Context, idx []int64, buf []byte, varlen bool) error {
	key := e.Key(idx)
	if varlen && e.Meta.Format != metadata.FormatN {
		return xerrors.Errorf("write_chunk %s: %w", key, ErrVarlenRequiresFormatN)
	}
	if varlen && len(idx) != 1 {
		return xerrors.Errorf("write_chunk %s: varlen chunks require a 1-D array, got %d dimensions", key, len(idx))
	}
	if e.isFillValue(buf) {
		if err := e.Store.Remove(ctx, key); err != nil {
			return xerrors.Errorf("write_chunk %s: %w", key, err)
		}
		return nil
	}

	elemSize := e.Meta.DType.Size()
	shape := e.borderChunkShape(idx)

	if e.Meta.Format == metadata.FormatZ {
		payload := e.padToChunkSize(buf, shape)
		encoded, err := e.Codec.Encode(payload)
		if err != nil {
			return xerrors.Errorf("write_chunk %s: %w: %w", key, ErrCodecError, err)
		}
		if err := e.Store.Write(ctx, key, encoded); err != nil {
			return xerrors.Errorf("write_chunk %s: %w", key, err)
		}
		return nil
	}

	numElements := product(shape)
	mode := HeaderModeFixed
	if varlen {
		mode = HeaderModeVarlen
		numElements = int64(len(buf) / elemSize)
	}
	disk := toBigEndian(buf, elemSize)
	encoded, err := e.Codec.Encode(disk)
	if err != nil {
		return xerrors.Errorf("write_chunk %s: %w: %w", key, ErrCodecError, err)
	}
	diskBlockSize := make([]int64, len(shape))
	for i, v := range shape {
		diskBlockSize[len(shape)-1-i] = v
	}
	header := EncodeHeaderN(HeaderN{Mode: mode, BlockSize: diskBlockSize, NumElements: uint32(numElements)})
	full := append(header, encoded...)
	if err := e.Store.Write(ctx, key, full); err != nil {
		return xerrors.Errorf("write_chunk %s: %w", key, err)
	}
	return nil
}

// padToChunkSize embeds buf, a densely packed buffer of shape shape (the
// chunk's border-aware shape), into a canonical-shaped chunk buffer at
// shape's own strides, filling the remainder with the fill value, as
// format Z requires for edge chunks. Callers that already hold a
// canonical-sized buffer (the read-modify-write path, which reads a
// full canonical buffer via ReadChunk and mutates it in place) pass it
// straight through unchanged.
func (e *Engine) padToChunkSize(buf []byte, shape []int64) []byte {
	elemSize := e.Meta.DType.Size()
	canonicalLen := int(product(e.Meta.Chunks)) * elemSize
	if len(buf) == canonicalLen {
		return buf
	}
	out := make([]byte, canonicalLen)
	fill := encodeScalar(e.Meta.DType, e.Meta.FillValue)
	for off := 0; off < len(out); off += elemSize {
		copy(out[off:off+elemSize], fill)
	}
	embedBorder(out, e.Meta.Chunks, buf, shape, elemSize)
	return out
}

// encodeScalar renders v as elemSize little-endian (native) bytes of
// dtype d. It is used only to build a repeatable fill-value pattern.
func encodeScalar(d metadata.DType, v float64) []byte {
	switch d.Size() {
	case 1:
		return []byte{byte(int64(v))}
	case 2:
		b := make([]byte, 2)
		putLE(b, uint64(int64(v)), 2)
		return b
	case 4:
		b := make([]byte, 4)
		if d == metadata.Float32 {
			putLEFloat32(b, float32(v))
		} else {
			putLE(b, uint64(int64(v)), 4)
		}
		return b
	case 8:
		b := make([]byte, 8)
		if d == metadata.Float64 {
			putLEFloat64(b, v)
		} else {
			putLE(b, uint64(int64(v)), 8)
		}
		return b
	default:
		panic(fmt.Sprintf("chunkio: unsupported dtype %q", d))
	}
}
