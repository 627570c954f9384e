package chunkarray

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveIndexAllAxes(t *testing.T) {
	region, squeeze, err := ResolveIndex([]int64{3, 4, 5}, nil)
	if err != nil {
		t.Fatalf("ResolveIndex: %v", err)
	}
	if diff := cmp.Diff([]int64{0, 0, 0}, region.Start); diff != "" {
		t.Errorf("Start mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{3, 4, 5}, region.Stop); diff != "" {
		t.Errorf("Stop mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, false}, squeeze); diff != "" {
		t.Errorf("squeeze mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIndexEllipsisExpansion(t *testing.T) {
	region, squeeze, err := ResolveIndex([]int64{3, 4, 5}, []IndexExpr{Int(1), Ellipsis()})
	if err != nil {
		t.Fatalf("ResolveIndex: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 0, 0}, region.Start); diff != "" {
		t.Errorf("Start mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 4, 5}, region.Stop); diff != "" {
		t.Errorf("Stop mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false, false}, squeeze); diff != "" {
		t.Errorf("squeeze mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIndexNegativeIndicesAndSlices(t *testing.T) {
	region, _, err := ResolveIndex([]int64{10}, []IndexExpr{Slice(i64p(-5), i64p(-1))})
	if err != nil {
		t.Fatalf("ResolveIndex: %v", err)
	}
	if diff := cmp.Diff([]int64{5}, region.Start); diff != "" {
		t.Errorf("Start mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{9}, region.Stop); diff != "" {
		t.Errorf("Stop mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIndexNegativeIntOutOfBounds(t *testing.T) {
	if _, _, err := ResolveIndex([]int64{4}, []IndexExpr{Int(-5)}); err == nil {
		t.Fatal("expected an error for an out-of-bounds negative index")
	}
}

func TestResolveIndexTooManyIndices(t *testing.T) {
	if _, _, err := ResolveIndex([]int64{4}, []IndexExpr{Int(0), Int(0)}); err == nil {
		t.Fatal("expected an error for too many indices")
	}
}

func TestResolveIndexMultipleEllipsisRejected(t *testing.T) {
	if _, _, err := ResolveIndex([]int64{4, 4}, []IndexExpr{Ellipsis(), Ellipsis()}); err == nil {
		t.Fatal("expected an error for multiple ellipses")
	}
}

func TestResolveIndexFewerThanRankPadsTrailingAll(t *testing.T) {
	region, _, err := ResolveIndex([]int64{3, 4, 5}, []IndexExpr{Int(1)})
	if err != nil {
		t.Fatalf("ResolveIndex: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 0, 0}, region.Start); diff != "" {
		t.Errorf("Start mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 4, 5}, region.Stop); diff != "" {
		t.Errorf("Stop mismatch (-want +got):\n%s", diff)
	}
}

func TestSqueezedShapeDropsIntAxes(t *testing.T) {
	got := squeezedShape([]int64{3, 4, 5}, []bool{true, false, false})
	if diff := cmp.Diff([]int64{4, 5}, got); diff != "" {
		t.Errorf("squeezedShape mismatch (-want +got):\n%s", diff)
	}
}
