// Package subarray implements the Subarray Engine of spec.md §4.5: it
// maps an N-D region request onto the chunks it overlaps, dispatches one
// job per chunk to a bounded worker pool, and performs the N-D strided
// copy between each chunk's buffer and the caller's contiguous buffer.
package subarray

import (
	"context"

	"golang.org/x/xerrors"

	"chunkarray/internal/chunkio"
)

// Region is a half-open N-D box, already normalized to
// [0, shape) per axis by the caller (spec.md §4.5: negative indices and
// ellipsis expansion happen before the engine is invoked).
type Region struct {
	Start []int64
	Stop  []int64
}

// Shape returns the region's per-axis element count.
func (r Region) Shape() []int64 {
	shape := make([]int64, len(r.Start))
	for d := range r.Start {
		shape[d] = r.Stop[d] - r.Start[d]
	}
	return shape
}

func (r Region) empty() bool {
	for d := range r.Start {
		if r.Start[d] == r.Stop[d] {
			return true
		}
	}
	return false
}

// Engine dispatches region reads/writes against one array's Chunk Engine.
type Engine struct {
	Chunk      *chunkio.Engine
	NumThreads int // 0 means 1, per spec.md §5's n_threads default
}

// chunkJob describes one covered chunk's intersection with the request.
type chunkJob struct {
	idx       []int64 // chunk index, user axis order
	userOff   []int64 // offset into the caller's buffer
	chunkOff  []int64 // offset into the chunk's own buffer
	shape     []int64 // intersection shape
	wholeChunk bool   // intersection == chunk's full in-bounds shape
}

// cover computes the inclusive chunk-index range touched by region and
// returns one job per covered chunk.
func (e *Engine) cover(region Region) []chunkJob {
	d := len(region.Start)
	chunks := e.Chunk.Meta.Chunks
	shape := e.Chunk.Meta.Shape

	first := make([]int64, d)
	last := make([]int64, d)
	for a := 0; a < d; a++ {
		first[a] = region.Start[a] / chunks[a]
		last[a] = (region.Stop[a] + chunks[a] - 1) / chunks[a]
		if last[a] > 0 {
			last[a]--
		}
	}

	var jobs []chunkJob
	idx := append([]int64(nil), first...)
	for {
		boundStart := make([]int64, d)
		boundEnd := make([]int64, d)
		for a := 0; a < d; a++ {
			boundStart[a] = idx[a] * chunks[a]
			boundEnd[a] = boundStart[a] + chunks[a]
			if boundEnd[a] > shape[a] {
				boundEnd[a] = shape[a]
			}
		}
		interStart := make([]int64, d)
		interEnd := make([]int64, d)
		userOff := make([]int64, d)
		chunkOff := make([]int64, d)
		interShape := make([]int64, d)
		whole := true
		for a := 0; a < d; a++ {
			interStart[a] = max64(boundStart[a], region.Start[a])
			interEnd[a] = min64(boundEnd[a], region.Stop[a])
			interShape[a] = interEnd[a] - interStart[a]
			userOff[a] = interStart[a] - region.Start[a]
			chunkOff[a] = interStart[a] - boundStart[a]
			if interStart[a] != boundStart[a] || interEnd[a] != boundEnd[a] {
				whole = false
			}
		}
		jobs = append(jobs, chunkJob{
			idx:        append([]int64(nil), idx...),
			userOff:    userOff,
			chunkOff:   chunkOff,
			shape:      interShape,
			wholeChunk: whole,
		})

		if !incrementIndex(idx, first, last) {
			break
		}
	}
	return jobs
}

func incrementIndex(idx, first, last []int64) bool {
	for a := len(idx) - 1; a >= 0; a-- {
		if idx[a] < last[a] {
			idx[a]++
			return true
		}
		idx[a] = first[a]
	}
	return false
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Read fills dst (shape == region.Shape(), C-contiguous) with region's
// elements, dispatching one decode+copy job per covered chunk to a
// bounded worker pool.
func (e *Engine) Read(ctx context.Context, region Region, dst []byte) error {
	if region.empty() {
		return nil
	}
	jobs := e.cover(region)
	elemSize := e.Chunk.Meta.DType.Size()
	regionShape := region.Shape()

	p, gctx := newPool(ctx, e.NumThreads)
	for _, j := range jobs {
		j := j
		p.goFunc(func() error {
			buf, _, err := e.Chunk.ReadChunk(gctx, j.idx)
			if err != nil {
				return xerrors.Errorf("subarray read: %w", err)
			}
			// Cooperative cancellation point before the final copy.
			if err := gctx.Err(); err != nil {
				return err
			}
			bufShape := e.Chunk.BufferShape(j.idx)
			copyND(dst, regionShape, j.userOff, buf, bufShape, j.chunkOff, j.shape, elemSize)
			return nil
		})
	}
	return p.wait()
}

// Write stores src (shape == region.Shape(), C-contiguous) into region.
// Chunks fully covered by the request are written directly; partially
// covered chunks are read-modify-written (spec.md §4.5).
func (e *Engine) Write(ctx context.Context, region Region, src []byte) error {
	if region.empty() {
		return nil
	}
	jobs := e.cover(region)
	elemSize := e.Chunk.Meta.DType.Size()
	regionShape := region.Shape()

	p, gctx := newPool(ctx, e.NumThreads)
	for _, j := range jobs {
		j := j
		p.goFunc(func() error { return e.writeOneChunk(gctx, j, regionShape, src, elemSize) })
	}
	return p.wait()
}

// WriteScalar broadcasts a single elemSize-byte scalar value across
// region, converting the scalar-broadcast rule of spec.md §4.5 into the
// same per-chunk read-modify-write path as Write.
func (e *Engine) WriteScalar(ctx context.Context, region Region, scalar []byte) error {
	if region.empty() {
		return nil
	}
	jobs := e.cover(region)

	p, gctx := newPool(ctx, e.NumThreads)
	for _, j := range jobs {
		j := j
		p.goFunc(func() error { return e.writeScalarOneChunk(gctx, j, scalar) })
	}
	return p.wait()
}

func (e *Engine) writeOneChunk(ctx context.Context, j chunkJob, regionShape []int64, src []byte, elemSize int) error {
	if j.wholeChunk {
		borderShape := e.Chunk.BorderShape(j.idx)
		buf := make([]byte, product(borderShape)*int64(elemSize))
		copyND(buf, borderShape, zeros(len(borderShape)), src, regionShape, j.userOff, j.shape, elemSize)
		if err := e.Chunk.WriteChunk(ctx, j.idx, buf, false); err != nil {
			return xerrors.Errorf("subarray write: %w", err)
		}
		return nil
	}
	buf, _, err := e.Chunk.ReadChunk(ctx, j.idx)
	if err != nil {
		return xerrors.Errorf("subarray write (read-modify): %w", err)
	}
	bufShape := e.Chunk.BufferShape(j.idx)
	copyND(buf, bufShape, j.chunkOff, src, regionShape, j.userOff, j.shape, elemSize)
	if err := e.Chunk.WriteChunk(ctx, j.idx, buf, false); err != nil {
		return xerrors.Errorf("subarray write (read-modify): %w", err)
	}
	return nil
}

func (e *Engine) writeScalarOneChunk(ctx context.Context, j chunkJob, scalar []byte) error {
	if j.wholeChunk {
		borderShape := e.Chunk.BorderShape(j.idx)
		buf := make([]byte, product(borderShape)*int64(len(scalar)))
		fillND(buf, borderShape, zeros(len(borderShape)), borderShape, scalar)
		if err := e.Chunk.WriteChunk(ctx, j.idx, buf, false); err != nil {
			return xerrors.Errorf("subarray write scalar: %w", err)
		}
		return nil
	}
	buf, _, err := e.Chunk.ReadChunk(ctx, j.idx)
	if err != nil {
		return xerrors.Errorf("subarray write scalar (read-modify): %w", err)
	}
	bufShape := e.Chunk.BufferShape(j.idx)
	fillND(buf, bufShape, j.chunkOff, j.shape, scalar)
	if err := e.Chunk.WriteChunk(ctx, j.idx, buf, false); err != nil {
		return xerrors.Errorf("subarray write scalar (read-modify): %w", err)
	}
	return nil
}

func zeros(n int) []int64 { return make([]int64, n) }

func product(shape []int64) int64 {
	n := int64(1)
	for _, s := range shape {
		n *= s
	}
	return n
}
