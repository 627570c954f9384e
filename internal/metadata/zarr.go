package metadata

import (
	"encoding/json"
	"errors"

	"golang.org/x/xerrors"
)

// ErrUnsupportedVersion means a .zarray/.zgroup document named a
// zarr_format this package doesn't implement (§4.2 requires only
// zarr_format 2).
var ErrUnsupportedVersion = errors.New("metadata: unsupported zarr_format")

// zarrArrayDoc is the wire shape of a .zarray document (zarr protocol
// version 2). Fields are ordered the way the reference implementation
// emits them, which the teacher's own metadata readers always preserve
// from the upstream wire format rather than alphabetizing.
type zarrArrayDoc struct {
	ZarrFormat        int               `json:"zarr_format"`
	Shape             []int64           `json:"shape"`
	Chunks            []int64           `json:"chunks"`
	DType             string            `json:"dtype"`
	Compressor        *zarrCompressor   `json:"compressor"`
	FillValue         float64           `json:"fill_value"`
	Order             string            `json:"order"`
	Filters           []interface{}     `json:"filters"`
	DimensionSepRaw   *string           `json:"dimension_separator,omitempty"`
}

type zarrCompressor struct {
	ID string `json:"id"`
	// Codec-specific options are folded into the same JSON object; they
	// round-trip through a raw map since their key set depends on ID.
	Options map[string]interface{} `json:"-"`
}

func (c *zarrCompressor) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Options)+1)
	for k, v := range c.Options {
		m[k] = v
	}
	m["id"] = c.ID
	return json.Marshal(m)
}

func (c *zarrCompressor) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	id, _ := m["id"].(string)
	delete(m, "id")
	c.ID = id
	c.Options = m
	return nil
}

// MarshalZArray renders meta as a .zarray document.
func MarshalZArray(meta ArrayMeta) ([]byte, error) {
	typestr, err := meta.DType.zarrTypestr()
	if err != nil {
		return nil, xerrors.Errorf("marshal .zarray: %w", err)
	}
	doc := zarrArrayDoc{
		ZarrFormat: 2,
		Shape:      meta.Shape,
		Chunks:     meta.Chunks,
		DType:      typestr,
		FillValue:  meta.FillValue,
		Order:      "C",
		Filters:    nil,
	}
	if meta.Compressor != nil {
		doc.Compressor = &zarrCompressor{ID: meta.Compressor.ID, Options: meta.Compressor.Options}
	}
	if meta.DimSeparator != "" && meta.DimSeparator != "." {
		sep := meta.DimSeparator
		doc.DimensionSepRaw = &sep
	}
	return json.MarshalIndent(doc, "", "    ")
}

// UnmarshalZArray parses a .zarray document.
func UnmarshalZArray(data []byte) (ArrayMeta, error) {
	var doc zarrArrayDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return ArrayMeta{}, xerrors.Errorf("unmarshal .zarray: %w", err)
	}
	if doc.ZarrFormat != 2 {
		return ArrayMeta{}, xerrors.Errorf("unmarshal .zarray: zarr_format %d: %w", doc.ZarrFormat, ErrUnsupportedVersion)
	}
	dtype, err := dtypeFromZarrTypestr(doc.DType)
	if err != nil {
		return ArrayMeta{}, xerrors.Errorf("unmarshal .zarray: %w", err)
	}
	meta := ArrayMeta{
		Format:       FormatZ,
		Shape:        doc.Shape,
		Chunks:       doc.Chunks,
		DType:        dtype,
		FillValue:    doc.FillValue,
		DimSeparator: ".",
	}
	if doc.Compressor != nil {
		meta.Compressor = &CompressorConfig{ID: doc.Compressor.ID, Options: doc.Compressor.Options}
	}
	if doc.DimensionSepRaw != nil {
		meta.DimSeparator = *doc.DimensionSepRaw
	}
	return meta, nil
}

// MarshalZAttrs renders a user attribute map as a .zattributes document.
// A nil/empty map still renders as "{}". CreateDataset writes one for
// every new format Z array; a format Z group gets one only once its
// attributes are set.
func MarshalZAttrs(attrs map[string]interface{}) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return json.MarshalIndent(attrs, "", "    ")
}

// UnmarshalZAttrs parses a .zattributes document.
func UnmarshalZAttrs(data []byte) (map[string]interface{}, error) {
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, xerrors.Errorf("unmarshal .zattributes: %w", err)
	}
	return attrs, nil
}

// MarshalZGroup renders the .zgroup marker that distinguishes a group
// directory from an array directory in format Z.
func MarshalZGroup() []byte {
	return []byte(`{"zarr_format":2}` + "\n")
}

// UnmarshalZGroup validates a .zgroup marker's zarr_format field.
func UnmarshalZGroup(data []byte) error {
	var doc struct {
		ZarrFormat int `json:"zarr_format"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return xerrors.Errorf("unmarshal .zgroup: %w", err)
	}
	if doc.ZarrFormat != 2 {
		return xerrors.Errorf("unmarshal .zgroup: zarr_format %d: %w", doc.ZarrFormat, ErrUnsupportedVersion)
	}
	return nil
}
