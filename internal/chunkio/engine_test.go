package chunkio

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkarray/internal/blobstore"
	"chunkarray/internal/metadata"
)

func newTestEngine(t *testing.T, format metadata.Format) *Engine {
	t.Helper()
	store := blobstore.NewFSStore(t.TempDir())
	meta := metadata.ArrayMeta{
		Format:       format,
		Shape:        []int64{5, 4},
		Chunks:       []int64{2, 2},
		DType:        metadata.Int32,
		DimSeparator: ".",
	}
	e, err := New(store, "arr", meta)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func int32Bytes(vs ...int32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		putLE(buf[i*4:i*4+4], uint64(uint32(v)), 4)
	}
	return buf
}

func TestKeyFormatZ(t *testing.T) {
	e := newTestEngine(t, metadata.FormatZ)
	if got, want := e.Key([]int64{1, 2}), "arr/1.2"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestKeyFormatN(t *testing.T) {
	e := newTestEngine(t, metadata.FormatN)
	if got, want := e.Key([]int64{1, 2}), "arr/2/1"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestSparseChunkReadsAsFillValue(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	exists, err := e.ChunkExists(ctx, []int64{0, 0})
	if err != nil {
		t.Fatalf("ChunkExists: %v", err)
	}
	if exists {
		t.Fatal("chunk should not exist before any write")
	}
	buf, present, err := e.ReadChunk(ctx, []int64{0, 0})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if present {
		t.Error("present = true for an absent chunk")
	}
	want := make([]byte, 2*2*4) // fill value defaults to 0
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("fill buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteThenReadRoundTripFormatZ(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	buf := int32Bytes(1, 2, 3, 4)
	if err := e.WriteChunk(ctx, []int64{0, 0}, buf, false); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, present, err := e.ReadChunk(ctx, []int64{0, 0})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if !present {
		t.Fatal("present = false after a write")
	}
	if diff := cmp.Diff(buf, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteThenReadRoundTripFormatN(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatN)
	// Chunk (2,1) is an edge chunk: rows 4..4 (1 row, since shape[0]=5), cols 2..3.
	buf := int32Bytes(10, 20)
	if err := e.WriteChunk(ctx, []int64{2, 1}, buf, false); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, present, err := e.ReadChunk(ctx, []int64{2, 1})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if !present {
		t.Fatal("present = false after a write")
	}
	if diff := cmp.Diff(buf, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWritingFillValueRemovesChunk(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	buf := int32Bytes(1, 2, 3, 4)
	if err := e.WriteChunk(ctx, []int64{0, 0}, buf, false); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	zero := int32Bytes(0, 0, 0, 0)
	if err := e.WriteChunk(ctx, []int64{0, 0}, zero, false); err != nil {
		t.Fatalf("WriteChunk (fill value): %v", err)
	}
	exists, err := e.ChunkExists(ctx, []int64{0, 0})
	if err != nil {
		t.Fatalf("ChunkExists: %v", err)
	}
	if exists {
		t.Error("chunk should have been removed after writing an all-fill-value buffer")
	}
}

func TestVarlenRejectedOnFormatZ(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	err := e.WriteChunk(ctx, []int64{0, 0}, int32Bytes(1), true)
	if err == nil {
		t.Fatal("expected an error writing a varlen chunk on format Z")
	}
}

// TestWriteChunkEmbedsBorderAtCanonicalStridesFormatZ exercises
// padToChunkSize directly: chunk (0,1) of a 3x3 array chunked 2x2 has
// border shape (2,1) (column 2's two rows), which must land in column 0
// of the canonical (2,2) on-disk buffer at canonical strides, not
// flat-packed into the buffer's first two elements.
func TestWriteChunkEmbedsBorderAtCanonicalStridesFormatZ(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewFSStore(t.TempDir())
	meta := metadata.ArrayMeta{
		Format:       metadata.FormatZ,
		Shape:        []int64{3, 3},
		Chunks:       []int64{2, 2},
		DType:        metadata.Int32,
		DimSeparator: ".",
	}
	e, err := New(store, "arr", meta)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff([]int64{2, 1}, e.BorderShape([]int64{0, 1})); diff != "" {
		t.Fatalf("BorderShape mismatch (-want +got):\n%s", diff)
	}
	if err := e.WriteChunk(ctx, []int64{0, 1}, int32Bytes(3, 6), false); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, present, err := e.ReadChunk(ctx, []int64{0, 1})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if !present {
		t.Fatal("present = false after a write")
	}
	want := int32Bytes(3, 0, 6, 0) // canonical 2x2, column 1 is fill value
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("canonical embed mismatch (-want +got):\n%s", diff)
	}
}

// TestGetChunkShapeFromHeaderFormatN covers fromHeader=true: it must read
// the shape recorded in the chunk's own on-disk header rather than
// recomputing it from the array's shape/chunks, and fall back to the
// array-derived border shape when the chunk is absent.
func TestGetChunkShapeFromHeaderFormatN(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatN)

	absent, err := e.GetChunkShape(ctx, []int64{2, 1}, true)
	if err != nil {
		t.Fatalf("GetChunkShape (absent): %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2}, absent); diff != "" {
		t.Errorf("GetChunkShape (absent) mismatch (-want +got):\n%s", diff)
	}

	if err := e.WriteChunk(ctx, []int64{2, 1}, int32Bytes(10, 20), false); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	fromHeader, err := e.GetChunkShape(ctx, []int64{2, 1}, true)
	if err != nil {
		t.Fatalf("GetChunkShape (fromHeader): %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2}, fromHeader); diff != "" {
		t.Errorf("GetChunkShape (fromHeader) mismatch (-want +got):\n%s", diff)
	}
	computed, err := e.GetChunkShape(ctx, []int64{2, 1}, false)
	if err != nil {
		t.Fatalf("GetChunkShape (computed): %v", err)
	}
	if diff := cmp.Diff(fromHeader, computed); diff != "" {
		t.Errorf("fromHeader and computed shapes diverge (-want +got):\n%s", diff)
	}
}

func TestBorderShapeTruncatesAtArrayEdge(t *testing.T) {
	e := newTestEngine(t, metadata.FormatN)
	got := e.BorderShape([]int64{2, 0}) // last row chunk: shape[0]=5, chunks[0]=2 -> rows 4..4
	want := []int64{1, 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BorderShape mismatch (-want +got):\n%s", diff)
	}
}
