package codecpipeline

import (
	"bytes"
	"io/ioutil"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/xerrors"
)

type lz4Codec struct {
	level lz4.CompressionLevel
}

func newLz4Codec(opts map[string]interface{}) (Codec, error) {
	if err := validateOptions(opts, "acceleration"); err != nil {
		return nil, xerrors.Errorf("lz4: %w", err)
	}
	// acceleration is lz4's speed knob (1 = default, higher = faster).
	// pierrec/lz4 has no such setting, only Fast and slower high-compression
	// levels, so every accepted value compresses in Fast mode.
	if _, err := intOption(opts, "acceleration", 1); err != nil {
		return nil, err
	}
	return lz4Codec{level: lz4.Fast}, nil
}

func (c lz4Codec) ID() string { return "lz4" }

func (c lz4Codec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(c.level)); err != nil {
		return nil, xerrors.Errorf("lz4: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, xerrors.Errorf("lz4: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("lz4: %w", err)
	}
	return buf.Bytes(), nil
}

func (c lz4Codec) Decode(src []byte, decodedSize int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("lz4: %w", err)
	}
	if len(out) != decodedSize {
		return nil, xerrors.Errorf("lz4: decoded %d bytes, want %d", len(out), decodedSize)
	}
	return out, nil
}
