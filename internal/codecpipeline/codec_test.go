package codecpipeline

import (
	"bytes"
	"testing"

	"chunkarray/internal/metadata"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7 % 251)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	cases := []*metadata.CompressorConfig{
		nil,
		{ID: "raw"},
		{ID: "gzip", Options: map[string]interface{}{"level": 6}},
		{ID: "zlib", Options: map[string]interface{}{"level": 6}},
		{ID: "bzip2", Options: map[string]interface{}{"level": 9}},
		{ID: "xz"},
		{ID: "lz4", Options: map[string]interface{}{"acceleration": 1}},
		{ID: "blosc", Options: map[string]interface{}{"clevel": 5, "typesize": 4}},
	}
	src := payload(4096)
	for _, cfg := range cases {
		name := "nil"
		if cfg != nil {
			name = cfg.ID
		}
		t.Run(name, func(t *testing.T) {
			codec, err := New(cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			enc, err := codec.Encode(src)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			dec, err := codec.Decode(enc, len(src))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(dec, src) {
				t.Fatalf("round trip mismatch for %s", name)
			}
		})
	}
}

func TestRawRejectsWrongLength(t *testing.T) {
	codec, _ := New(&metadata.CompressorConfig{ID: "raw"})
	if _, err := codec.Decode(payload(8), 16); err == nil {
		t.Fatal("expected error decoding raw payload of mismatched length")
	}
}

func TestUnsupportedCompressor(t *testing.T) {
	if _, err := New(&metadata.CompressorConfig{ID: "made-up"}); err == nil {
		t.Fatal("expected error for unknown compressor id")
	}
}

func TestUnrecognizedOptionRejected(t *testing.T) {
	cases := []*metadata.CompressorConfig{
		{ID: "raw", Options: map[string]interface{}{"bogus": 1}},
		{ID: "gzip", Options: map[string]interface{}{"level": 5, "bogus": 1}},
		{ID: "zlib", Options: map[string]interface{}{"bogus": 1}},
		{ID: "bzip2", Options: map[string]interface{}{"bogus": 1}},
		{ID: "xz", Options: map[string]interface{}{"bogus": 1}},
		{ID: "lz4", Options: map[string]interface{}{"bogus": 1}},
		{ID: "blosc", Options: map[string]interface{}{"clevel": 5, "bogus": 1}},
	}
	for _, cfg := range cases {
		t.Run(cfg.ID, func(t *testing.T) {
			if _, err := New(cfg); err == nil {
				t.Fatalf("New(%q with a bogus option) succeeded, want an error", cfg.ID)
			}
		})
	}
}

func TestDefaultCompressionLevelIsFive(t *testing.T) {
	for _, id := range []string{"gzip", "zlib"} {
		t.Run(id, func(t *testing.T) {
			codec, err := New(&metadata.CompressorConfig{ID: id})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			var level int
			switch c := codec.(type) {
			case gzipCodec:
				level = c.level
			case zlibCodec:
				level = c.level
			default:
				t.Fatalf("unexpected codec type %T", codec)
			}
			if level != 5 {
				t.Errorf("default level = %d, want 5", level)
			}
		})
	}
}
