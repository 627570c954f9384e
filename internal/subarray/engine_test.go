package subarray

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkarray/internal/blobstore"
	"chunkarray/internal/chunkio"
	"chunkarray/internal/metadata"
)

// newTestEngine builds a 5x4 int32 array chunked 2x2, backed by a
// filesystem Blob Store under a fresh temp directory.
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
	ce, err := chunkio.New(store, "arr", meta)
	if err != nil {
		t.Fatalf("chunkio.New: %v", err)
	}
	return &Engine{Chunk: ce, NumThreads: 2}
}

func int32Bytes(vs ...int32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		off := i * 4
		u := uint32(v)
		buf[off] = byte(u)
		buf[off+1] = byte(u >> 8)
		buf[off+2] = byte(u >> 16)
		buf[off+3] = byte(u >> 24)
	}
	return buf
}

func int32Slice(buf []byte) []int32 {
	out := make([]int32, len(buf)/4)
	for i := range out {
		off := i * 4
		u := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
		out[i] = int32(u)
	}
	return out
}

func TestWriteReadFullArrayRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	region := Region{Start: []int64{0, 0}, Stop: []int64{5, 4}}
	src := make([]int32, 20)
	for i := range src {
		src[i] = int32(i)
	}
	if err := e.Write(ctx, region, int32Bytes(src...)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dst := make([]byte, 20*4)
	if err := e.Read(ctx, region, dst); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(src, int32Slice(dst)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadSubregionCrossesChunkBoundary(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatN)
	full := Region{Start: []int64{0, 0}, Stop: []int64{5, 4}}
	src := make([]int32, 20)
	for i := range src {
		src[i] = int32(100 + i)
	}
	if err := e.Write(ctx, full, int32Bytes(src...)); err != nil {
		t.Fatalf("Write(full): %v", err)
	}

	// rows 1..3, cols 1..2: straddles four chunks, a 2x2 block of the grid.
	sub := Region{Start: []int64{1, 1}, Stop: []int64{4, 3}}
	dst := make([]byte, sub.Shape()[0]*sub.Shape()[1]*4)
	if err := e.Read(ctx, sub, dst); err != nil {
		t.Fatalf("Read(sub): %v", err)
	}
	want := []int32{
		100 + 1*4 + 1, 100 + 1*4 + 2,
		100 + 2*4 + 1, 100 + 2*4 + 2,
		100 + 3*4 + 1, 100 + 3*4 + 2,
	}
	if diff := cmp.Diff(want, int32Slice(dst)); diff != "" {
		t.Errorf("subregion mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialChunkWritePreservesNeighbors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	full := Region{Start: []int64{0, 0}, Stop: []int64{2, 2}}
	if err := e.Write(ctx, full, int32Bytes(1, 2, 3, 4)); err != nil {
		t.Fatalf("Write(full chunk): %v", err)
	}
	// Overwrite only the top-left element; (0,1),(1,0),(1,1) must survive.
	one := Region{Start: []int64{0, 0}, Stop: []int64{1, 1}}
	if err := e.Write(ctx, one, int32Bytes(99)); err != nil {
		t.Fatalf("Write(one element): %v", err)
	}
	dst := make([]byte, 4*4)
	if err := e.Read(ctx, full, dst); err != nil {
		t.Fatalf("Read(full chunk): %v", err)
	}
	if diff := cmp.Diff([]int32{99, 2, 3, 4}, int32Slice(dst)); diff != "" {
		t.Errorf("partial write mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteScalarBroadcast(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	region := Region{Start: []int64{0, 0}, Stop: []int64{2, 2}}
	if err := e.WriteScalar(ctx, region, int32Bytes(7)); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	dst := make([]byte, 4*4)
	if err := e.Read(ctx, region, dst); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]int32{7, 7, 7, 7}, int32Slice(dst)); diff != "" {
		t.Errorf("scalar broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestReadEmptyRegionIsNoop(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatZ)
	region := Region{Start: []int64{2, 2}, Stop: []int64{2, 2}}
	if err := e.Read(ctx, region, nil); err != nil {
		t.Fatalf("Read(empty region): %v", err)
	}
}

// TestWriteReadTrailingAxisRemainderFormatZ covers a format Z array whose
// chunk grid has a remainder on a non-leading axis: shape (3,3) chunked
// (2,2) leaves chunk (0,1) with border shape (2,1), embedded in column 0
// of its canonical (2,2) on-disk buffer. A whole-chunk direct write that
// flat-packed the border data instead of embedding it at canonical
// strides would store it in the wrong column and read back transposed.
func TestWriteReadTrailingAxisRemainderFormatZ(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewFSStore(t.TempDir())
	meta := metadata.ArrayMeta{
		Format:       metadata.FormatZ,
		Shape:        []int64{3, 3},
		Chunks:       []int64{2, 2},
		DType:        metadata.Int32,
		DimSeparator: ".",
	}
	ce, err := chunkio.New(store, "arr", meta)
	if err != nil {
		t.Fatalf("chunkio.New: %v", err)
	}
	e := &Engine{Chunk: ce, NumThreads: 1}

	full := Region{Start: []int64{0, 0}, Stop: []int64{3, 3}}
	src := make([]int32, 9)
	for i := range src {
		src[i] = int32(i)
	}
	if err := e.Write(ctx, full, int32Bytes(src...)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dst := make([]byte, 9*4)
	if err := e.Read(ctx, full, dst); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(src, int32Slice(dst)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Directly confirm chunk (0,1)'s on-disk border region, in isolation.
	colRegion := Region{Start: []int64{0, 2}, Stop: []int64{2, 3}}
	colDst := make([]byte, 2*4)
	if err := e.Read(ctx, colRegion, colDst); err != nil {
		t.Fatalf("Read(column 2): %v", err)
	}
	if diff := cmp.Diff([]int32{2, 5}, int32Slice(colDst)); diff != "" {
		t.Errorf("border column mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteScalarTrailingAxisRemainderFormatZ is the scalar-broadcast
// analogue: writeScalarOneChunk's whole-chunk branch has the same
// embed-vs-flat-pack hazard as writeOneChunk.
func TestWriteScalarTrailingAxisRemainderFormatZ(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewFSStore(t.TempDir())
	meta := metadata.ArrayMeta{
		Format:       metadata.FormatZ,
		Shape:        []int64{3, 3},
		Chunks:       []int64{2, 2},
		DType:        metadata.Int32,
		DimSeparator: ".",
	}
	ce, err := chunkio.New(store, "arr", meta)
	if err != nil {
		t.Fatalf("chunkio.New: %v", err)
	}
	e := &Engine{Chunk: ce, NumThreads: 1}

	// Chunk (0,1)'s whole border is the 2x1 box at rows 0..2, col 2.
	border := Region{Start: []int64{0, 2}, Stop: []int64{2, 3}}
	if err := e.WriteScalar(ctx, border, int32Bytes(9)); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	dst := make([]byte, 2*4)
	if err := e.Read(ctx, border, dst); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]int32{9, 9}, int32Slice(dst)); diff != "" {
		t.Errorf("scalar border mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkIndependentWritesDontInterfere(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, metadata.FormatN)
	a := Region{Start: []int64{0, 0}, Stop: []int64{2, 2}}
	b := Region{Start: []int64{2, 2}, Stop: []int64{4, 4}}
	if err := e.Write(ctx, a, int32Bytes(1, 1, 1, 1)); err != nil {
		t.Fatalf("Write(a): %v", err)
	}
	if err := e.Write(ctx, b, int32Bytes(2, 2, 2, 2)); err != nil {
		t.Fatalf("Write(b): %v", err)
	}
	dstA := make([]byte, 4*4)
	if err := e.Read(ctx, a, dstA); err != nil {
		t.Fatalf("Read(a): %v", err)
	}
	if diff := cmp.Diff([]int32{1, 1, 1, 1}, int32Slice(dstA)); diff != "" {
		t.Errorf("region a mismatch (-want +got):\n%s", diff)
	}
}
