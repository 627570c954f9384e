package blobstore

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// FSStore is the filesystem-backed Blob Store: key = path relative to
// Root, value = file contents. Directories are created lazily on first
// write under them, matching the teacher's build output tree which never
// pre-creates directories it doesn't need.
type FSStore struct {
	Root string
}

// NewFSStore returns a Store rooted at root. The root directory itself is
// not created; the first Write beneath it creates any missing parents.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerrors.Errorf("stat %s: %w", key, err)
}

func (s *FSStore) Read(ctx context.Context, key string) ([]byte, error) {
	b, err := ioutil.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, ErrDenied
		}
		return nil, xerrors.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *FSStore) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, ErrDenied
		}
		return nil, xerrors.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// Write replaces key's content atomically: it writes to a temp file in
// the same directory and renames it into place, so a concurrent reader
// never observes a torn write. This mirrors every write path in the
// teacher (cmd/distri/build.go, internal/install/install.go): always
// renameio.TempFile + t.CloseAtomicallyReplace.
func (s *FSStore) Write(ctx context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return xerrors.Errorf("mkdir for %s: %w", key, err)
	}
	t, err := renameio.TempFile("", p)
	if err != nil {
		return xerrors.Errorf("create temp for %s: %w", key, err)
	}
	defer t.Cleanup()
	if _, err := t.Write(data); err != nil {
		return xerrors.Errorf("write %s: %w", key, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) Remove(ctx context.Context, key string) error {
	if err := os.RemoveAll(s.path(key)); err != nil {
		return xerrors.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := ioutil.ReadDir(s.path(prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerrors.Errorf("list %s: %w", prefix, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSStore) Relative(parent, child string) string {
	if parent == "" {
		return child
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}
