package codecpipeline

import (
	"bytes"
	"io/ioutil"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

type zlibCodec struct {
	level int
}

func newZlibCodec(opts map[string]interface{}) (Codec, error) {
	if err := validateOptions(opts, "level"); err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	level, err := intOption(opts, "level", defaultCompressionLevel)
	if err != nil {
		return nil, err
	}
	return zlibCodec{level: level}, nil
}

func (c zlibCodec) ID() string { return "zlib" }

func (c zlibCodec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

func (c zlibCodec) Decode(src []byte, decodedSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	defer r.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("zlib: %w", err)
	}
	if len(out) != decodedSize {
		return nil, xerrors.Errorf("zlib: decoded %d bytes, want %d", len(out), decodedSize)
	}
	return out, nil
}
