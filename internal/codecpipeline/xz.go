package codecpipeline

import (
	"bytes"
	"io/ioutil"

	"github.com/ulikunitz/xz"
	"golang.org/x/xerrors"
)

type xzCodec struct {
	preset int
}

func newXzCodec(opts map[string]interface{}) (Codec, error) {
	if err := validateOptions(opts, "preset"); err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	preset, err := intOption(opts, "preset", 6)
	if err != nil {
		return nil, err
	}
	return xzCodec{preset: preset}, nil
}

func (c xzCodec) ID() string { return "xz" }

func (c xzCodec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := xz.WriterConfig{}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	return buf.Bytes(), nil
}

func (c xzCodec) Decode(src []byte, decodedSize int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("xz: %w", err)
	}
	if len(out) != decodedSize {
		return nil, xerrors.Errorf("xz: decoded %d bytes, want %d", len(out), decodedSize)
	}
	return out, nil
}
