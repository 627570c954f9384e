package codecpipeline

import (
	"bytes"
	"io/ioutil"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// parallelThreshold is the payload size above which gzip encode switches
// from klauspost/compress/gzip to klauspost/pgzip's block-parallel writer;
// below it the per-goroutine setup cost isn't worth paying for a single
// chunk's compression.
const parallelThreshold = 1 << 20

type gzipCodec struct {
	level int
}

// defaultCompressionLevel is §4.3's default for gzip/zlib's "level"
// option: 5, not the ecosystem package's own DefaultCompression (-1,
// which maps to level 6).
const defaultCompressionLevel = 5

func newGzipCodec(opts map[string]interface{}) (Codec, error) {
	if err := validateOptions(opts, "level"); err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	level, err := intOption(opts, "level", defaultCompressionLevel)
	if err != nil {
		return nil, err
	}
	return gzipCodec{level: level}, nil
}

func (c gzipCodec) ID() string { return "gzip" }

func (c gzipCodec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if len(src) >= parallelThreshold {
		w, err := pgzip.NewWriterLevel(&buf, c.level)
		if err != nil {
			return nil, xerrors.Errorf("gzip: %w", err)
		}
		if _, err := w.Write(src); err != nil {
			return nil, xerrors.Errorf("gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, xerrors.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), nil
	}
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) Decode(src []byte, decodedSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	defer r.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("gzip: %w", err)
	}
	if len(out) != decodedSize {
		return nil, xerrors.Errorf("gzip: decoded %d bytes, want %d", len(out), decodedSize)
	}
	return out, nil
}
