package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps assets under a root directory and treats a non-empty file
// as a committed asset.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.root, filepath.FromSlash(string(key)))
}

func (s *FileStore) Exists(_ context.Context, key Key) (bool, error) {
	fi, err := os.Stat(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir() && fi.Size() > 0, nil
}

func (s *FileStore) Commit(ctx context.Context, key Key) error {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("commit %s: file missing or empty", key)
	}
	return nil
}

// Forget removes the file of key. A missing file is not an error.
func (s *FileStore) Forget(_ context.Context, key Key) error {
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("forget %s: %w", key, err)
	}
	return nil
}

// PartPath is where an asset is written before it is promoted to the path
// of key. The extension is kept so tools that infer the format still work.
func PartPath(s Store, key Key) string {
	p := s.Path(key)
	return filepath.Join(filepath.Dir(p), ".part-"+filepath.Base(p))
}

// Promote moves a finished part file into place and commits key. A crash
// before Promote leaves only the part file, which Exists never reports.
func Promote(ctx context.Context, s Store, key Key) error {
	if err := os.Rename(PartPath(s, key), s.Path(key)); err != nil {
		return fmt.Errorf("promote %s: %w", key, err)
	}
	return s.Commit(ctx, key)
}

// WriteFile writes data for key through a part file, then commits it.
func WriteFile(ctx context.Context, s Store, key Key, data []byte) error {
	tmp := PartPath(s, key)
	if err := os.MkdirAll(filepath.Dir(tmp), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return Promote(ctx, s, key)
}
