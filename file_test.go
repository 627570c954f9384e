package chunkarray

import (
	"context"
	"testing"
)

func TestOpenDetectsExistingFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if _, err := Open(ctx, dir, ModeExclusive, FormatN); err != nil {
		t.Fatalf("Open (create): %v", err)
	}
	// createFormat is ignored once a container already exists.
	f, err := Open(ctx, dir, ModeRead, FormatZ)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	if f.Format() != FormatN {
		t.Errorf("Format() = %v, want FormatN (detected from the existing marker)", f.Format())
	}
}

func TestOpenModeReadMissingContainer(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, t.TempDir(), ModeRead, FormatZ); !hasKind(err, KindNotFound) {
		t.Fatalf("Open(ModeRead, missing) = %v, want NotFound", err)
	}
}

func TestOpenModeWriteTruncatesExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := Open(ctx, dir, ModeExclusive, FormatZ)
	if err != nil {
		t.Fatalf("Open (create): %v", err)
	}
	if _, err := f.Root().CreateDataset(ctx, "a", []int64{4}, Int32, CreateDatasetOptions{}); err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}

	truncated, err := Open(ctx, dir, ModeWrite, FormatZ)
	if err != nil {
		t.Fatalf("Open (ModeWrite): %v", err)
	}
	if ok, err := truncated.Root().Contains(ctx, "a"); err != nil || ok {
		t.Errorf("Contains(a) after truncate = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestOpenModeAppendCreatesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	f, err := Open(ctx, t.TempDir(), ModeAppend, FormatN)
	if err != nil {
		t.Fatalf("Open (ModeAppend, absent): %v", err)
	}
	if f.Format() != FormatN {
		t.Errorf("Format() = %v, want FormatN", f.Format())
	}
}

func TestCloseIsNoop(t *testing.T) {
	f, err := Open(context.Background(), t.TempDir(), ModeExclusive, FormatZ)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
