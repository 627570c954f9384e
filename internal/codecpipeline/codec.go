// Package codecpipeline implements spec.md §4.3's per-chunk compression
// codecs: raw, gzip, zlib, bzip2, xz, lz4 and blosc, selected by the
// compressor id recorded in an array's metadata document.
package codecpipeline

import (
	"golang.org/x/xerrors"

	"chunkarray/internal/metadata"
)

// Codec compresses and decompresses one chunk's payload. Encode/Decode
// operate on whole byte slices: chunks are bounded in size (at most the
// product of one chunk's shape and the element size), so streaming
// isn't needed for any of the supported algorithms.
type Codec interface {
	// ID is the identifier recorded in the array's metadata document.
	ID() string

	// Encode compresses src, returning a new slice.
	Encode(src []byte) ([]byte, error)

	// Decode decompresses src into a buffer of exactly decodedSize bytes.
	// Callers pass decodedSize (derived from the chunk's shape and dtype)
	// so codecs that don't self-describe their output length, like raw
	// and blosc's inner stream, don't need to guess.
	Decode(src []byte, decodedSize int) ([]byte, error)
}

// New constructs the Codec named by cfg. A nil cfg (no "compressor" key in
// the metadata document) selects the raw codec, matching both formats'
// convention that absent compression metadata means uncompressed storage.
func New(cfg *metadata.CompressorConfig) (Codec, error) {
	if cfg == nil {
		return rawCodec{}, nil
	}
	if cfg.ID == "" || cfg.ID == "raw" || cfg.ID == "null" {
		if err := validateOptions(cfg.Options); err != nil {
			return nil, xerrors.Errorf("compressor %q: %w", cfg.ID, err)
		}
		return rawCodec{}, nil
	}
	switch cfg.ID {
	case "gzip":
		return newGzipCodec(cfg.Options)
	case "zlib":
		return newZlibCodec(cfg.Options)
	case "bzip2":
		return newBzip2Codec(cfg.Options)
	case "xz":
		return newXzCodec(cfg.Options)
	case "lz4":
		return newLz4Codec(cfg.Options)
	case "blosc":
		return newBloscCodec(cfg.Options)
	default:
		return nil, xerrors.Errorf("unsupported compressor %q", cfg.ID)
	}
}

// validateOptions rejects any key in opts that isn't in allowed (§4.3:
// "only listed options are valid; extras cause a configuration error").
// Called before a codec constructor parses its own recognized keys.
func validateOptions(opts map[string]interface{}, allowed ...string) error {
	for k := range opts {
		recognized := false
		for _, a := range allowed {
			if k == a {
				recognized = true
				break
			}
		}
		if !recognized {
			return xerrors.Errorf("unrecognized option %q", k)
		}
	}
	return nil
}

func intOption(opts map[string]interface{}, key string, def int) (int, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, xerrors.Errorf("option %q: expected number, got %T", key, v)
	}
}

func stringOption(opts map[string]interface{}, key, def string) (string, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", xerrors.Errorf("option %q: expected string, got %T", key, v)
	}
	return s, nil
}
