package chunkio

// stridesOf returns row-major (C-order, last axis fastest) element
// strides for shape.
func stridesOf(shape []int64) []int64 {
	s := make([]int64, len(shape))
	stride := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

// embedBorder copies src, a densely packed buffer of shape borderShape,
// into the top-left corner of dst, a densely packed buffer of shape
// canonicalShape, preserving dst's canonical strides. This is the
// inverse of truncating a canonical chunk buffer down to its in-bounds
// border: format Z's on-disk layout always has the full canonical shape,
// so an edge chunk's border-sized write buffer has to land at the
// canonical strides rather than packed contiguously.
func embedBorder(dst []byte, canonicalShape []int64, src []byte, borderShape []int64, elemSize int) {
	if len(canonicalShape) == 0 {
		copy(dst[:elemSize], src[:elemSize])
		return
	}
	embedBorderRec(dst, stridesOf(canonicalShape), 0, src, stridesOf(borderShape), 0, borderShape, 0, elemSize)
}

func embedBorderRec(dst []byte, dstStr []int64, dstBase int64, src []byte, srcStr []int64, srcBase int64, shape []int64, axis int, elemSize int) {
	if axis == len(shape)-1 {
		n := shape[axis]
		d := dstBase * int64(elemSize)
		s := srcBase * int64(elemSize)
		copy(dst[d:d+n*int64(elemSize)], src[s:s+n*int64(elemSize)])
		return
	}
	for i := int64(0); i < shape[axis]; i++ {
		embedBorderRec(dst, dstStr, dstBase+i*dstStr[axis], src, srcStr, srcBase+i*srcStr[axis], shape, axis+1, elemSize)
	}
}
