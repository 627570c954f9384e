package chunkarray

import (
	"chunkarray/internal/subarray"
)

// IndexExpr is one axis of a NumPy-style index expression: an integer
// (selects and squeezes an axis), a half-open slice (nil bounds mean "to
// the edge"), or an ellipsis (expands to the minimal set of full-axis
// slices needed to make the expression match the array's rank).
type IndexExpr struct {
	ellipsis bool
	isInt    bool
	i        int64
	start    *int64
	stop     *int64
}

// Int selects a single position along an axis and squeezes that axis out
// of the result shape.
func Int(i int64) IndexExpr { return IndexExpr{isInt: true, i: i} }

// Slice selects [start, stop) along an axis. A nil bound extends to the
// array's edge on that side.
func Slice(start, stop *int64) IndexExpr { return IndexExpr{start: start, stop: stop} }

// All selects an axis in full; equivalent to Slice(nil, nil).
func All() IndexExpr { return IndexExpr{} }

// Ellipsis expands to as many All() axes as needed to reach the array's
// rank. At most one Ellipsis is permitted per index expression.
func Ellipsis() IndexExpr { return IndexExpr{ellipsis: true} }

func i64p(v int64) *int64 { return &v }

// ResolveIndex normalizes exprs against shape into a Region the Subarray
// Engine can consume, plus a per-axis squeeze mask (set where an integer
// index collapsed that axis), per spec.md §4.5's index-normalization
// rules.
func ResolveIndex(shape []int64, exprs []IndexExpr) (subarray.Region, []bool, error) {
	ndim := len(shape)

	ellipsisAt := -1
	nonEllipsis := 0
	for i, e := range exprs {
		if e.ellipsis {
			if ellipsisAt != -1 {
				return subarray.Region{}, nil, newErr(KindInvalidArgument, "resolve_index", "", errf("at most one ellipsis is permitted"))
			}
			ellipsisAt = i
			continue
		}
		nonEllipsis++
	}
	if nonEllipsis > ndim {
		return subarray.Region{}, nil, newErr(KindInvalidArgument, "resolve_index", "", errf("too many indices for shape of rank %d", ndim))
	}

	expanded := make([]IndexExpr, 0, ndim)
	if ellipsisAt != -1 {
		fill := ndim - nonEllipsis
		expanded = append(expanded, exprs[:ellipsisAt]...)
		for i := 0; i < fill; i++ {
			expanded = append(expanded, All())
		}
		expanded = append(expanded, exprs[ellipsisAt+1:]...)
	} else {
		expanded = append(expanded, exprs...)
		for len(expanded) < ndim {
			expanded = append(expanded, All())
		}
	}
	if len(expanded) != ndim {
		return subarray.Region{}, nil, newErr(KindInvalidArgument, "resolve_index", "", errf("too many indices for shape of rank %d", ndim))
	}

	region := subarray.Region{Start: make([]int64, ndim), Stop: make([]int64, ndim)}
	squeeze := make([]bool, ndim)
	for axis, e := range expanded {
		dim := shape[axis]
		if e.isInt {
			i := e.i
			if i < 0 {
				i += dim
			}
			if i < 0 || i >= dim {
				return subarray.Region{}, nil, newErr(KindInvalidArgument, "resolve_index", "", errf("index %d out of bounds for axis %d (size %d)", e.i, axis, dim))
			}
			region.Start[axis] = i
			region.Stop[axis] = i + 1
			squeeze[axis] = true
			continue
		}
		start := int64(0)
		stop := dim
		if e.start != nil {
			start = *e.start
			if start < 0 {
				start += dim
			}
		}
		if e.stop != nil {
			stop = *e.stop
			if stop < 0 {
				stop += dim
			}
		}
		if start < 0 {
			start = 0
		}
		if stop > dim {
			stop = dim
		}
		if start > dim {
			start = dim
		}
		if stop < start {
			stop = start
		}
		region.Start[axis] = start
		region.Stop[axis] = stop
	}
	return region, squeeze, nil
}

// squeezedShape drops every axis flagged in squeeze from shape, in order.
func squeezedShape(shape []int64, squeeze []bool) []int64 {
	out := make([]int64, 0, len(shape))
	for i, s := range shape {
		if !squeeze[i] {
			out = append(out, s)
		}
	}
	return out
}
