package codecpipeline

import (
	"bytes"
	stdbzip2 "compress/bzip2"
	"io/ioutil"

	"github.com/dsnet/compress/bzip2"
	"golang.org/x/xerrors"
)

// bzip2Codec decodes with the standard library (compress/bzip2 is
// read-only) and encodes with dsnet/compress/bzip2, the ecosystem's
// write-capable pure-Go implementation.
type bzip2Codec struct {
	level int
}

func newBzip2Codec(opts map[string]interface{}) (Codec, error) {
	if err := validateOptions(opts, "level"); err != nil {
		return nil, xerrors.Errorf("bzip2: %w", err)
	}
	level, err := intOption(opts, "level", 9)
	if err != nil {
		return nil, err
	}
	return bzip2Codec{level: level}, nil
}

func (c bzip2Codec) ID() string { return "bzip2" }

func (c bzip2Codec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: c.level})
	if err != nil {
		return nil, xerrors.Errorf("bzip2: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, xerrors.Errorf("bzip2: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("bzip2: %w", err)
	}
	return buf.Bytes(), nil
}

func (c bzip2Codec) Decode(src []byte, decodedSize int) ([]byte, error) {
	r := stdbzip2.NewReader(bytes.NewReader(src))
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("bzip2: %w", err)
	}
	if len(out) != decodedSize {
		return nil, xerrors.Errorf("bzip2: decoded %d bytes, want %d", len(out), decodedSize)
	}
	return out, nil
}
