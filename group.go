package chunkarray

import (
	"context"
	"sort"

	"chunkarray/internal/metadata"
)

// Group is a named node that may contain child groups and datasets
// (spec.md §3). The root Group has path "".
type Group struct {
	file *File
	path string
}

func (g *Group) key(name string) string {
	if g.path == "" {
		return name
	}
	return g.file.store.Relative(g.path, name)
}

func (g *Group) childPath(name string) string {
	if g.path == "" {
		return name
	}
	return g.path + "/" + name
}

// Path returns this group's path within its container ("" for the root).
func (g *Group) Path() string { return g.path }

func isReservedName(n string) bool {
	switch n {
	case ".zarray", ".zattributes", ".zgroup", "attributes.json":
		return true
	default:
		return false
	}
}

// entryKind classifies childPath as "group", "dataset" or "" (absent).
func (g *Group) entryKind(ctx context.Context, childPath string) (string, error) {
	rel := func(name string) string {
		if childPath == "" {
			return name
		}
		return childPath + "/" + name
	}
	if g.file.format == FormatZ {
		if ok, err := g.file.store.Exists(ctx, rel(".zarray")); err != nil {
			return "", wrapStoreErr(err, "stat", childPath)
		} else if ok {
			return "dataset", nil
		}
		if ok, err := g.file.store.Exists(ctx, rel(".zgroup")); err != nil {
			return "", wrapStoreErr(err, "stat", childPath)
		} else if ok {
			return "group", nil
		}
		return "", nil
	}
	ok, err := g.file.store.Exists(ctx, rel("attributes.json"))
	if err != nil {
		return "", wrapStoreErr(err, "stat", childPath)
	}
	if !ok {
		// An n5 group directory with no attributes.json of its own is
		// still a group if it has any children at all.
		children, lerr := g.file.store.List(ctx, childPath)
		if lerr != nil {
			return "", wrapStoreErr(lerr, "stat", childPath)
		}
		if len(children) == 0 {
			return "", nil
		}
		return "group", nil
	}
	raw, err := g.file.store.Read(ctx, rel("attributes.json"))
	if err != nil {
		return "", wrapStoreErr(err, "stat", childPath)
	}
	meta, _, err := metadata.UnmarshalN5Attributes(raw)
	if err != nil {
		return "", newErr(KindCorruptChunk, "stat", childPath, err)
	}
	if meta != nil {
		return "dataset", nil
	}
	return "group", nil
}

// Keys returns the names of this group's immediate children, in sorted order.
func (g *Group) Keys(ctx context.Context) ([]string, error) {
	entries, err := g.file.store.List(ctx, g.path)
	if err != nil {
		return nil, wrapStoreErr(err, "keys", g.path)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if isReservedName(e) {
			continue
		}
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

// Contains reports whether name is an immediate child of this group.
func (g *Group) Contains(ctx context.Context, name string) (bool, error) {
	kind, err := g.entryKind(ctx, g.childPath(name))
	if err != nil {
		return false, err
	}
	return kind != "", nil
}

// VisitItems walks every descendant group and dataset depth-first,
// calling fn with its path (relative to this group) and kind
// ("group"/"dataset"). Walking stops and returns fn's error if it returns
// one.
func (g *Group) VisitItems(ctx context.Context, fn func(path, kind string) error) error {
	names, err := g.Keys(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		kind, err := g.entryKind(ctx, g.childPath(name))
		if err != nil {
			return err
		}
		if kind == "" {
			continue
		}
		if err := fn(name, kind); err != nil {
			return err
		}
		if kind == "group" {
			child := &Group{file: g.file, path: g.childPath(name)}
			if err := child.visitItemsPrefixed(ctx, name, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Group) visitItemsPrefixed(ctx context.Context, prefix string, fn func(path, kind string) error) error {
	return g.VisitItems(ctx, func(path, kind string) error {
		return fn(prefix+"/"+path, kind)
	})
}

// Attrs returns this group's user attribute map.
func (g *Group) Attrs(ctx context.Context) (map[string]interface{}, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	return g.readAttrsLocked(ctx)
}

func (g *Group) readAttrsLocked(ctx context.Context) (map[string]interface{}, error) {
	if g.file.format == FormatZ {
		raw, err := g.file.store.Read(ctx, g.key(".zattributes"))
		if err != nil {
			if isStoreNotFound(err) {
				return map[string]interface{}{}, nil
			}
			return nil, wrapStoreErr(err, "attrs", g.path)
		}
		attrs, err := metadata.UnmarshalZAttrs(raw)
		if err != nil {
			return nil, newErr(KindCorruptChunk, "attrs", g.path, err)
		}
		return attrs, nil
	}
	raw, err := g.file.store.Read(ctx, g.key("attributes.json"))
	if err != nil {
		if isStoreNotFound(err) {
			return map[string]interface{}{}, nil
		}
		return nil, wrapStoreErr(err, "attrs", g.path)
	}
	_, attrs, err := metadata.UnmarshalN5Attributes(raw)
	if err != nil {
		return nil, newErr(KindCorruptChunk, "attrs", g.path, err)
	}
	return attrs, nil
}

// SetAttrs replaces this group's user attribute map. On format N this is
// a full read-modify-write cycle against the same attributes.json that
// (for a dataset) also holds the reserved dataset fields.
func (g *Group) SetAttrs(ctx context.Context, attrs map[string]interface{}) error {
	if err := g.file.checkWritable("set_attrs", g.path); err != nil {
		return err
	}
	g.file.mu.Lock()
	defer g.file.mu.Unlock()

	if g.file.format == FormatZ {
		raw, err := metadata.MarshalZAttrs(attrs)
		if err != nil {
			return newErr(KindInvalidArgument, "set_attrs", g.path, err)
		}
		if err := g.file.store.Write(ctx, g.key(".zattributes"), raw); err != nil {
			return wrapStoreErr(err, "set_attrs", g.path)
		}
		return nil
	}

	existingMeta, _, err := g.readRawMetaLocked(ctx)
	if err != nil {
		return err
	}
	var raw []byte
	if existingMeta != nil {
		raw, err = metadata.MarshalN5Attributes(*existingMeta, attrs)
	} else {
		raw, err = metadataMarshalPlainN5(attrs)
	}
	if err != nil {
		return newErr(KindInvalidArgument, "set_attrs", g.path, err)
	}
	if err := g.file.store.Write(ctx, g.key("attributes.json"), raw); err != nil {
		return wrapStoreErr(err, "set_attrs", g.path)
	}
	return nil
}

func (g *Group) readRawMetaLocked(ctx context.Context) (*metadata.ArrayMeta, map[string]interface{}, error) {
	raw, err := g.file.store.Read(ctx, g.key("attributes.json"))
	if err != nil {
		if isStoreNotFound(err) {
			return nil, map[string]interface{}{}, nil
		}
		return nil, nil, wrapStoreErr(err, "attrs", g.path)
	}
	meta, attrs, err := metadata.UnmarshalN5Attributes(raw)
	if err != nil {
		return nil, nil, newErr(KindCorruptChunk, "attrs", g.path, err)
	}
	return meta, attrs, nil
}

func metadataMarshalPlainN5(attrs map[string]interface{}) ([]byte, error) {
	return metadata.MarshalZAttrs(attrs) // plain JSON object marshal, format-agnostic
}

// CreateGroup creates a new child group named name.
func (g *Group) CreateGroup(ctx context.Context, name string) (*Group, error) {
	if err := g.file.checkWritable("create_group", g.childPath(name)); err != nil {
		return nil, err
	}
	existing, err := g.entryKind(ctx, g.childPath(name))
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, newErr(KindAlreadyExists, "create_group", g.childPath(name), nil)
	}
	child := &Group{file: g.file, path: g.childPath(name)}
	if g.file.format == FormatZ {
		if err := g.file.store.Write(ctx, child.key(".zgroup"), metadata.MarshalZGroup()); err != nil {
			return nil, wrapStoreErr(err, "create_group", child.path)
		}
		return child, nil
	}
	emptyAttrs, err := metadata.MarshalZAttrs(nil)
	if err != nil {
		return nil, newErr(KindInvalidArgument, "create_group", child.path, err)
	}
	if err := g.file.store.Write(ctx, child.key("attributes.json"), emptyAttrs); err != nil {
		return nil, wrapStoreErr(err, "create_group", child.path)
	}
	return child, nil
}

// RequireGroup returns the existing child group named name, creating it
// if absent. It errors with Mismatch if name already names a dataset.
func (g *Group) RequireGroup(ctx context.Context, name string) (*Group, error) {
	kind, err := g.entryKind(ctx, g.childPath(name))
	if err != nil {
		return nil, err
	}
	switch kind {
	case "group":
		return &Group{file: g.file, path: g.childPath(name)}, nil
	case "dataset":
		return nil, newErr(KindMismatch, "require_group", g.childPath(name), errf("name is a dataset"))
	default:
		return g.CreateGroup(ctx, name)
	}
}

// OpenGroup opens an existing child group named name.
func (g *Group) OpenGroup(ctx context.Context, name string) (*Group, error) {
	kind, err := g.entryKind(ctx, g.childPath(name))
	if err != nil {
		return nil, err
	}
	if kind != "group" {
		return nil, newErr(KindNotFound, "open_group", g.childPath(name), nil)
	}
	return &Group{file: g.file, path: g.childPath(name)}, nil
}

// Delete recursively removes name, which may be a group or a dataset.
func (g *Group) Delete(ctx context.Context, name string) error {
	if err := g.file.checkWritable("delete", g.childPath(name)); err != nil {
		return err
	}
	if err := g.file.store.Remove(ctx, g.childPath(name)); err != nil {
		return wrapStoreErr(err, "delete", g.childPath(name))
	}
	return nil
}
