package chunkarray

import (
	"context"
	"errors"

	"chunkarray/internal/blobstore"
	"chunkarray/internal/chunkio"
	"chunkarray/internal/metadata"
	"chunkarray/internal/subarray"
)

// CompressorConfig names a chunk codec and its options (spec.md §4.3).
type CompressorConfig = metadata.CompressorConfig

// CreateDatasetOptions configures a new dataset. Chunks defaults to
// Shape (one chunk covering the whole array) if nil; Compressor defaults
// to raw; DimSeparator applies only to format Z and defaults to ".".
type CreateDatasetOptions struct {
	Chunks       []int64
	Compressor   *CompressorConfig
	FillValue    float64
	DimSeparator string
	NumThreads   int
}

// Dataset is a named leaf holding a rectangular N-D grid of chunks
// (spec.md §3's "Array").
type Dataset struct {
	file *File
	path string
	meta metadata.ArrayMeta

	chunk *chunkio.Engine
	sub   *subarray.Engine
}

func metaArrayKey(format Format, path string) string {
	if format == FormatZ {
		return joinKey(path, ".zarray")
	}
	return joinKey(path, "attributes.json")
}

func joinKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

func clampChunks(shape, chunks []int64) []int64 {
	out := make([]int64, len(shape))
	for i := range shape {
		c := chunks[i]
		if c > shape[i] {
			c = shape[i]
		}
		if c < 1 {
			c = 1
		}
		out[i] = c
	}
	return out
}

func validateShapeChunks(shape, chunks []int64) error {
	if len(shape) == 0 {
		return newErr(KindInvalidArgument, "create_dataset", "", errf("shape must have at least one dimension"))
	}
	if chunks != nil && len(chunks) != len(shape) {
		return newErr(KindInvalidArgument, "create_dataset", "", errf("chunks rank %d does not match shape rank %d", len(chunks), len(shape)))
	}
	for i, s := range shape {
		if s < 0 {
			return newErr(KindInvalidArgument, "create_dataset", "", errf("shape[%d] = %d is negative", i, s))
		}
		if chunks != nil && chunks[i] < 1 {
			return newErr(KindInvalidArgument, "create_dataset", "", errf("chunks[%d] = %d must be >= 1", i, chunks[i]))
		}
	}
	return nil
}

func newEngineFor(f *File, path string, meta metadata.ArrayMeta, numThreads int) (*Dataset, error) {
	ce, err := chunkio.New(f.store, path, meta)
	if err != nil {
		return nil, newErr(KindInvalidArgument, "open_dataset", path, err)
	}
	return &Dataset{
		file:  f,
		path:  path,
		meta:  meta,
		chunk: ce,
		sub:   &subarray.Engine{Chunk: ce, NumThreads: numThreads},
	}, nil
}

// CreateDataset creates a new dataset named name with the given shape,
// element type and options.
func (g *Group) CreateDataset(ctx context.Context, name string, shape []int64, dtype DType, opts CreateDatasetOptions) (*Dataset, error) {
	path := g.childPath(name)
	if err := g.file.checkWritable("create_dataset", path); err != nil {
		return nil, err
	}
	if !dtype.Valid() {
		return nil, newErr(KindInvalidArgument, "create_dataset", path, errf("unsupported dtype %q", dtype))
	}
	chunks := opts.Chunks
	if chunks == nil {
		chunks = append([]int64(nil), shape...)
	}
	if err := validateShapeChunks(shape, chunks); err != nil {
		return nil, err
	}
	chunks = clampChunks(shape, chunks)

	existing, err := g.entryKind(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, newErr(KindAlreadyExists, "create_dataset", path, nil)
	}

	compressor := opts.Compressor
	sep := opts.DimSeparator
	if sep == "" {
		sep = "."
	}
	meta := metadata.ArrayMeta{
		Format:       g.file.format,
		Shape:        shape,
		Chunks:       chunks,
		DType:        dtype,
		Compressor:   compressor,
		FillValue:    opts.FillValue,
		DimSeparator: sep,
	}

	var raw []byte
	if g.file.format == FormatZ {
		raw, err = metadata.MarshalZArray(meta)
	} else {
		raw, err = metadata.MarshalN5Attributes(meta, nil)
	}
	if err != nil {
		return nil, newErr(KindInvalidArgument, "create_dataset", path, err)
	}
	if err := g.file.store.Write(ctx, metaArrayKey(g.file.format, path), raw); err != nil {
		return nil, wrapStoreErr(err, "create_dataset", path)
	}
	if g.file.format == FormatZ {
		emptyAttrs, err := metadata.MarshalZAttrs(nil)
		if err != nil {
			return nil, newErr(KindInvalidArgument, "create_dataset", path, err)
		}
		if err := g.file.store.Write(ctx, joinKey(path, ".zattributes"), emptyAttrs); err != nil {
			return nil, wrapStoreErr(err, "create_dataset", path)
		}
	}
	return newEngineFor(g.file, path, meta, opts.NumThreads)
}

// OpenDataset opens the existing dataset named name.
func (g *Group) OpenDataset(ctx context.Context, name string) (*Dataset, error) {
	path := g.childPath(name)
	kind, err := g.entryKind(ctx, path)
	if err != nil {
		return nil, err
	}
	if kind != "dataset" {
		return nil, newErr(KindNotFound, "open_dataset", path, nil)
	}
	raw, err := g.file.store.Read(ctx, metaArrayKey(g.file.format, path))
	if err != nil {
		return nil, wrapStoreErr(err, "open_dataset", path)
	}
	var meta metadata.ArrayMeta
	if g.file.format == FormatZ {
		meta, err = metadata.UnmarshalZArray(raw)
	} else {
		var m *metadata.ArrayMeta
		m, _, err = metadata.UnmarshalN5Attributes(raw)
		if err == nil {
			meta = *m
		}
	}
	if err != nil {
		errKind := KindCorruptChunk
		if errors.Is(err, metadata.ErrUnsupportedVersion) {
			errKind = KindVersionError
		}
		return nil, newErr(errKind, "open_dataset", path, err)
	}
	return newEngineFor(g.file, path, meta, 0)
}

// RequireDataset returns the existing dataset named name if its shape,
// chunk shape (when chunks is non-nil) and dtype match; if name is absent
// it creates a new one with the given parameters. A pre-existing dataset
// with an incompatible shape/chunks/dtype raises Mismatch (spec.md §4.6,
// §8 property 6).
func (g *Group) RequireDataset(ctx context.Context, name string, shape []int64, dtype DType, opts CreateDatasetOptions) (*Dataset, error) {
	path := g.childPath(name)
	kind, err := g.entryKind(ctx, path)
	if err != nil {
		return nil, err
	}
	if kind == "group" {
		return nil, newErr(KindMismatch, "require_dataset", path, errf("name is a group"))
	}
	if kind != "dataset" {
		return g.CreateDataset(ctx, name, shape, dtype, opts)
	}
	ds, err := g.OpenDataset(ctx, name)
	if err != nil {
		return nil, err
	}
	if !int64SliceEqual(ds.meta.Shape, shape) {
		return nil, newErr(KindMismatch, "require_dataset", path, errf("shape %v does not match existing %v", shape, ds.meta.Shape))
	}
	if opts.Chunks != nil && !int64SliceEqual(ds.meta.Chunks, clampChunks(shape, opts.Chunks)) {
		return nil, newErr(KindMismatch, "require_dataset", path, errf("chunks %v does not match existing %v", opts.Chunks, ds.meta.Chunks))
	}
	if ds.meta.DType != dtype {
		return nil, newErr(KindMismatch, "require_dataset", path, errf("dtype %q does not match existing %q", dtype, ds.meta.DType))
	}
	return ds, nil
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Path returns the dataset's path within its container.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dataset's element count per axis, in user C-order.
func (d *Dataset) Shape() []int64 { return append([]int64(nil), d.meta.Shape...) }

// ChunkShape returns the dataset's chunk shape, in user C-order.
func (d *Dataset) ChunkShape() []int64 { return append([]int64(nil), d.meta.Chunks...) }

// DType returns the dataset's element type.
func (d *Dataset) DType() DType { return d.meta.DType }

// FillValue returns the value a never-written position reads as.
func (d *Dataset) FillValue() float64 { return d.meta.FillValue }

// Attrs returns the dataset's user attributes.
func (d *Dataset) Attrs(ctx context.Context) (map[string]interface{}, error) {
	g := &Group{file: d.file, path: d.path}
	return g.Attrs(ctx)
}

// SetAttrs replaces the dataset's user attributes.
func (d *Dataset) SetAttrs(ctx context.Context, attrs map[string]interface{}) error {
	g := &Group{file: d.file, path: d.path}
	return g.SetAttrs(ctx, attrs)
}

// Chunks enumerates the chunk indices that currently have a chunk file
// on disk (read-only; no rechunking logic is implemented on top of it).
// Absent chunks — the sparse representation of spec.md §4.4 — are never
// returned.
func (d *Dataset) Chunks(ctx context.Context) ([][]int64, error) {
	ndim := len(d.meta.Shape)
	sep := d.meta.DimSeparator
	if d.meta.Format == FormatZ && sep != "/" {
		entries, err := d.file.store.List(ctx, d.path)
		if err != nil {
			return nil, wrapStoreErr(err, "chunks", d.path)
		}
		var result [][]int64
		for _, e := range entries {
			if isReservedName(e) {
				continue
			}
			idx, ok := parseFlatChunkName(e, sep, ndim)
			if ok {
				result = append(result, idx)
			}
		}
		return result, nil
	}
	// Format N, and format Z with a "/" separator, nest one directory level
	// per axis.
	var result [][]int64
	if err := walkChunksN(ctx, d.file.store, d.path, nil, ndim, d.meta.Format == FormatN, &result); err != nil {
		return nil, wrapStoreErr(err, "chunks", d.path)
	}
	return result, nil
}

func parseFlatChunkName(name, sep string, ndim int) ([]int64, bool) {
	parts := splitSep(name, sep)
	if len(parts) != ndim {
		return nil, false
	}
	idx := make([]int64, ndim)
	for i, p := range parts {
		n, err := parseInt64(p)
		if err != nil {
			return nil, false
		}
		idx[i] = n
	}
	return idx, true
}

func splitSep(s, sep string) []string {
	if sep == "" {
		sep = "."
	}
	var parts []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			parts = append(parts, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseInt64(s string) (int64, error) {
	var n int64
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, errf("empty numeric component")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errf("invalid numeric component %q", s)
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// walkChunksN recursively descends a per-dimension directory nesting,
// collecting leaf keys as chunk indices in user C-order. With reverse set
// (format N) the on-disk axis order is reversed back to C-order; otherwise
// (format Z with a "/" separator) the on-disk order already is C-order.
func walkChunksN(ctx context.Context, store blobstore.Store, path string, diskIdx []int64, ndim int, reverse bool, out *[][]int64) error {
	if len(diskIdx) == ndim {
		idx := make([]int64, ndim)
		for i, v := range diskIdx {
			if reverse {
				idx[ndim-1-i] = v
			} else {
				idx[i] = v
			}
		}
		*out = append(*out, idx)
		return nil
	}
	entries, err := store.List(ctx, path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isReservedName(e) {
			continue
		}
		n, err := parseInt64(e)
		if err != nil {
			continue
		}
		if err := walkChunksN(ctx, store, joinKey(path, e), append(diskIdx, n), ndim, reverse, out); err != nil {
			return err
		}
	}
	return nil
}

// ReadRegion fills dst (C-contiguous, length == region shape's element
// count * dtype size) with region's decoded bytes.
func (d *Dataset) ReadRegion(ctx context.Context, region subarray.Region, dst []byte) error {
	return d.sub.Read(ctx, region, dst)
}

// WriteRegion stores src (C-contiguous) into region.
func (d *Dataset) WriteRegion(ctx context.Context, region subarray.Region, src []byte) error {
	if err := d.file.checkWritable("write", d.path); err != nil {
		return err
	}
	return d.sub.Write(ctx, region, src)
}

// WriteScalarRegion broadcasts the elemSize-byte scalar across region.
func (d *Dataset) WriteScalarRegion(ctx context.Context, region subarray.Region, scalar []byte) error {
	if err := d.file.checkWritable("write", d.path); err != nil {
		return err
	}
	return d.sub.WriteScalar(ctx, region, scalar)
}

// Index resolves exprs against this dataset's shape (spec.md §4.5's
// index-normalization rules).
func (d *Dataset) Index(exprs ...IndexExpr) (subarray.Region, []bool, error) {
	return ResolveIndex(d.meta.Shape, exprs)
}
