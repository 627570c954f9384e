package codecpipeline

import "golang.org/x/xerrors"

// rawCodec stores chunk payloads uncompressed. Both formats treat a
// missing/"raw" compressor the same way: the on-disk payload is exactly
// the chunk's native bytes.
type rawCodec struct{}

func (rawCodec) ID() string { return "raw" }

func (rawCodec) Encode(src []byte) ([]byte, error) {
	return src, nil
}

func (rawCodec) Decode(src []byte, decodedSize int) ([]byte, error) {
	if len(src) != decodedSize {
		return nil, xerrors.Errorf("raw: payload is %d bytes, want %d", len(src), decodedSize)
	}
	return src, nil
}
