// Package fs provides the filesystem DocumentStore.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/artpar/readerspec/ports"
)

// Store reads and writes spec documents on the local filesystem.
type Store struct {
	ext string
}

// New creates a store for documents ending in ext.
func New(ext string) *Store {
	return &Store{ext: ext}
}

// Extension returns the document suffix the store lists.
func (s *Store) Extension() string {
	return s.ext
}

// Read returns the document at path.
func (s *Store) Read(ctx context.Context, path string) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return ports.Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return ports.Document{}, fmt.Errorf("read %s: %w", path, ports.ErrNotFound)
		}
		return ports.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	return ports.Document{
		Path:    path,
		Content: string(data),
		Name:    s.Name(path),
	}, nil
}

// Name returns the base name of path without the document extension.
func (s *Store) Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), s.ext)
}

// Write replaces the file at path. The content goes to a temporary file in
// the same directory which is then renamed over the target.
func (s *Store) Write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, []byte(content))
}

// List returns every document below root, sorted.
func (s *Store) List(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("list %s: %w", root, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), "**/*"+s.ext, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	sort.Strings(paths)
	return paths, nil
}

// File is a generated artifact.
type File struct {
	Name    string
	Content []byte
}

// WriteGenerated writes files under dir, creating directories as needed.
// It returns the paths written.
func WriteGenerated(dir string, files []File) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("create directory for %s: %w", f.Name, err)
		}
		if err := writeAtomic(path, f.Content); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
