package metadata

import (
	"encoding/json"

	"golang.org/x/xerrors"
)

// n5Compression is the modern ("compression": {"type": ...}) encoding of
// an n5 dataset's codec.
type n5Compression struct {
	Type    string                 `json:"type"`
	Options map[string]interface{} `json:"-"`
}

func (c *n5Compression) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Options)+1)
	for k, v := range c.Options {
		m[k] = v
	}
	m["type"] = c.Type
	return json.Marshal(m)
}

func (c *n5Compression) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	t, _ := m["type"].(string)
	delete(m, "type")
	c.Type = t
	c.Options = m
	return nil
}

// n5AttributesDoc is the wire shape of an n5 dataset's attributes.json.
// Format N stores dimensions and blockSize in reverse axis order relative
// to the user's C-order shape/chunks (spec.md §4.2, "format N reverses
// dimension order on disk"); every other field round-trips as-is.
type n5AttributesDoc struct {
	Dimensions      []int64        `json:"dimensions,omitempty"`
	BlockSize       []int64        `json:"blockSize,omitempty"`
	DataType        string         `json:"dataType,omitempty"`
	Compression     *n5Compression `json:"compression,omitempty"`
	CompressionType string         `json:"compressionType,omitempty"` // legacy pre-2.x field
}

func reversed(s []int64) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// MarshalN5Attributes renders meta's dataset fields merged with extra
// (the dataset's user attributes) into a single attributes.json document,
// matching n5's convention of keeping dataset metadata and user
// attributes side by side in one file.
func MarshalN5Attributes(meta ArrayMeta, extra map[string]interface{}) ([]byte, error) {
	typeName, err := meta.DType.n5TypeName()
	if err != nil {
		return nil, xerrors.Errorf("marshal attributes.json: %w", err)
	}
	out := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		out[k] = v
	}
	out["dimensions"] = reversed(meta.Shape)
	out["blockSize"] = reversed(meta.Chunks)
	out["dataType"] = typeName
	if meta.Compressor != nil {
		comp := &n5Compression{Type: meta.Compressor.ID, Options: meta.Compressor.Options}
		b, err := comp.MarshalJSON()
		if err != nil {
			return nil, xerrors.Errorf("marshal attributes.json: %w", err)
		}
		var raw json.RawMessage = b
		out["compression"] = raw
	}
	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalN5Attributes parses an attributes.json document. If the
// document has no "dimensions" key it is a group's user attributes only
// and meta is nil. Otherwise meta is populated and the dataset fields are
// stripped out of attrs, leaving only the user's own attributes.
func UnmarshalN5Attributes(data []byte) (meta *ArrayMeta, attrs map[string]interface{}, err error) {
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, nil, xerrors.Errorf("unmarshal attributes.json: %w", err)
	}
	if _, isDataset := all["dimensions"]; !isDataset {
		return nil, all, nil
	}

	var doc n5AttributesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, xerrors.Errorf("unmarshal attributes.json: %w", err)
	}
	dtype, err := dtypeFromN5TypeName(doc.DataType)
	if err != nil {
		return nil, nil, xerrors.Errorf("unmarshal attributes.json: %w", err)
	}

	m := &ArrayMeta{
		Format:       FormatN,
		Shape:        reversed(doc.Dimensions),
		Chunks:       reversed(doc.BlockSize),
		DType:        dtype,
		DimSeparator: "/",
	}
	switch {
	case doc.Compression != nil:
		m.Compressor = &CompressorConfig{ID: doc.Compression.Type, Options: doc.Compression.Options}
	case doc.CompressionType != "":
		m.Compressor = &CompressorConfig{ID: doc.CompressionType}
	default:
		m.Compressor = &CompressorConfig{ID: "raw"}
	}

	rest := make(map[string]interface{}, len(all))
	for k, v := range all {
		rest[k] = v
	}
	delete(rest, "dimensions")
	delete(rest, "blockSize")
	delete(rest, "dataType")
	delete(rest, "compression")
	delete(rest, "compressionType")
	return m, rest, nil
}

// MarshalN5RootMarker renders the container-root attributes.json that
// declares the n5 version, matching the "n5": "2.x.x" key every n5
// writer places at the root of the store.
func MarshalN5RootMarker() []byte {
	return []byte(`{"n5":"2.5.1"}` + "\n")
}
