package chunkarray

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTypedIndexSqueezesIntegerAxis(t *testing.T) {
	ctx := context.Background()
	f := openTempFile(t, FormatZ)
	ds, err := f.Root().CreateDataset(ctx, "grid", []int64{3, 4}, Int32, CreateDatasetOptions{Chunks: []int64{3, 4}})
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	typed, err := Typed[int32](ds)
	if err != nil {
		t.Fatalf("Typed: %v", err)
	}
	values := make([]int32, 12)
	for i := range values {
		values[i] = int32(i)
	}
	if err := typed.Write(ctx, values, Ellipsis()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	row, shape, err := typed.Read(ctx, Int(1), Ellipsis())
	if err != nil {
		t.Fatalf("Read(row 1): %v", err)
	}
	if diff := cmp.Diff([]int64{4}, shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int32{4, 5, 6, 7}, row); diff != "" {
		t.Errorf("row values mismatch (-want +got):\n%s", diff)
	}
}

func TestTypedWriteScalar(t *testing.T) {
	ctx := context.Background()
	f := openTempFile(t, FormatN)
	ds, err := f.Root().CreateDataset(ctx, "grid", []int64{4}, Uint8, CreateDatasetOptions{})
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	typed, err := Typed[uint8](ds)
	if err != nil {
		t.Fatalf("Typed: %v", err)
	}
	if err := typed.WriteScalar(ctx, 9, Ellipsis()); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	got, _, err := typed.Read(ctx, Ellipsis())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]uint8{9, 9, 9, 9}, got); diff != "" {
		t.Errorf("broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestTypedDatasetAccessor(t *testing.T) {
	ctx := context.Background()
	f := openTempFile(t, FormatZ)
	ds, err := f.Root().CreateDataset(ctx, "grid", []int64{4}, Int64, CreateDatasetOptions{})
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	typed, err := Typed[int64](ds)
	if err != nil {
		t.Fatalf("Typed: %v", err)
	}
	if typed.Dataset() != ds {
		t.Error("Dataset() did not return the wrapped Dataset")
	}
}
