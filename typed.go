package chunkarray

import (
	"context"
	"encoding/binary"
	"math"
)

// Number is the set of element types a TypedDataset may be parameterized
// over (spec.md §3's element-type list).
type Number interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// TypedDataset is the typed view of spec.md §9's "Polymorphic dataset
// over dtype" design note: a type-erased Dataset is checked against T
// once, at Typed's call site, and reads/writes afterwards take and return
// Go's normal typed slices. Packing and unpacking those slices still
// switches on T once per element (putOne/getOne).
type TypedDataset[T Number] struct {
	ds *Dataset
}

func dtypeOf[T Number]() DType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		return ""
	}
}

// Typed produces a TypedDataset[T] from ds, failing if ds's on-disk
// element type doesn't match T.
func Typed[T Number](ds *Dataset) (*TypedDataset[T], error) {
	want := dtypeOf[T]()
	if ds.meta.DType != want {
		return nil, newErr(KindInvalidArgument, "typed", ds.path, errf("dataset dtype %q does not match requested type %q", ds.meta.DType, want))
	}
	return &TypedDataset[T]{ds: ds}, nil
}

// Dataset returns the untyped Dataset this view wraps.
func (t *TypedDataset[T]) Dataset() *Dataset { return t.ds }

func elemCount(shape []int64) int64 {
	n := int64(1)
	for _, s := range shape {
		n *= s
	}
	return n
}

// Read resolves exprs against the dataset's shape and returns the
// selected region as a flat, C-order slice together with its (squeezed)
// shape.
func (t *TypedDataset[T]) Read(ctx context.Context, exprs ...IndexExpr) ([]T, []int64, error) {
	region, squeeze, err := t.ds.Index(exprs...)
	if err != nil {
		return nil, nil, err
	}
	shape := region.Shape()
	buf := make([]byte, elemCount(shape)*int64(dtypeOf[T]().Size()))
	if err := t.ds.ReadRegion(ctx, region, buf); err != nil {
		return nil, nil, err
	}
	return unpackSlice[T](buf), squeezedShape(shape, squeeze), nil
}

// Write stores values (flat, C-order) into the region exprs resolves to.
func (t *TypedDataset[T]) Write(ctx context.Context, values []T, exprs ...IndexExpr) error {
	region, _, err := t.ds.Index(exprs...)
	if err != nil {
		return err
	}
	return t.ds.WriteRegion(ctx, region, packSlice(values))
}

// WriteScalar broadcasts value across the region exprs resolves to
// (spec.md §4.5's scalar-broadcast write path).
func (t *TypedDataset[T]) WriteScalar(ctx context.Context, value T, exprs ...IndexExpr) error {
	region, _, err := t.ds.Index(exprs...)
	if err != nil {
		return err
	}
	return t.ds.WriteScalarRegion(ctx, region, packSlice([]T{value}))
}

func packSlice[T Number](s []T) []byte {
	sz := dtypeOf[T]().Size()
	buf := make([]byte, len(s)*sz)
	for i, v := range s {
		putOne(buf[i*sz:(i+1)*sz], v)
	}
	return buf
}

func unpackSlice[T Number](buf []byte) []T {
	sz := dtypeOf[T]().Size()
	out := make([]T, len(buf)/sz)
	for i := range out {
		out[i] = getOne[T](buf[i*sz : (i+1)*sz])
	}
	return out
}

func putOne[T Number](b []byte, v T) {
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case int16:
		binary.NativeEndian.PutUint16(b, uint16(x))
	case uint16:
		binary.NativeEndian.PutUint16(b, x)
	case int32:
		binary.NativeEndian.PutUint32(b, uint32(x))
	case uint32:
		binary.NativeEndian.PutUint32(b, x)
	case int64:
		binary.NativeEndian.PutUint64(b, uint64(x))
	case uint64:
		binary.NativeEndian.PutUint64(b, x)
	case float32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(x))
	case float64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(x))
	}
}

func getOne[T Number](b []byte) T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(b[0])).(T)
	case uint8:
		return any(b[0]).(T)
	case int16:
		return any(int16(binary.NativeEndian.Uint16(b))).(T)
	case uint16:
		return any(binary.NativeEndian.Uint16(b)).(T)
	case int32:
		return any(int32(binary.NativeEndian.Uint32(b))).(T)
	case uint32:
		return any(binary.NativeEndian.Uint32(b)).(T)
	case int64:
		return any(int64(binary.NativeEndian.Uint64(b))).(T)
	case uint64:
		return any(binary.NativeEndian.Uint64(b)).(T)
	case float32:
		return any(math.Float32frombits(binary.NativeEndian.Uint32(b))).(T)
	case float64:
		return any(math.Float64frombits(binary.NativeEndian.Uint64(b))).(T)
	default:
		panic("chunkarray: unreachable dtype")
	}
}
