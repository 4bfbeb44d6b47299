package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/readerspec/adapters/fs"
	"github.com/artpar/readerspec/ports"
)

const ext = ".readerspec.md"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestStore_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todos"+ext)
	writeFile(t, path, "## What\nTodos\n")

	doc, err := fs.New(ext).Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.Name != "todos" {
		t.Errorf("Name = %q, want todos", doc.Name)
	}
	if doc.Content != "## What\nTodos\n" {
		t.Errorf("Content = %q", doc.Content)
	}
	if doc.Path != path {
		t.Errorf("Path = %q", doc.Path)
	}
}

func TestStore_Read_NotFound(t *testing.T) {
	_, err := fs.New(ext).Read(context.Background(), filepath.Join(t.TempDir(), "missing"+ext))
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todos"+ext)
	writeFile(t, path, "old")

	store := fs.New(ext)
	if err := store.Write(context.Background(), path, "new content"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new content" {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestStore_Write_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "todos"+ext)
	if err := fs.New(ext).Write(context.Background(), path, "x"); err == nil {
		t.Error("expected error writing into missing directory")
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b"+ext), "")
	writeFile(t, filepath.Join(dir, "a"+ext), "")
	writeFile(t, filepath.Join(dir, "nested", "deep", "c"+ext), "")
	writeFile(t, filepath.Join(dir, "notes.md"), "")
	writeFile(t, filepath.Join(dir, "other.txt"), "")

	paths, err := fs.New(ext).List(context.Background(), dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a"+ext),
		filepath.Join(dir, "b"+ext),
		filepath.Join(dir, "nested", "deep", "c"+ext),
	}
	if len(paths) != len(want) {
		t.Fatalf("List = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestStore_List_MissingRoot(t *testing.T) {
	_, err := fs.New(ext).List(context.Background(), filepath.Join(t.TempDir(), "specs"))
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_List_Empty(t *testing.T) {
	paths, err := fs.New(ext).List(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List = %v, want empty", paths)
	}
}

func TestWriteGenerated(t *testing.T) {
	dir := t.TempDir()

	written, err := fs.WriteGenerated(dir, []fs.File{
		{Name: "openapi.json", Content: []byte("{}")},
		{Name: "todos/openapi.json", Content: []byte(`{"a":1}`)},
	})
	if err != nil {
		t.Fatalf("WriteGenerated failed: %v", err)
	}
	if len(written) != 2 {
		t.Errorf("written = %v", written)
	}

	data, err := os.ReadFile(filepath.Join(dir, "todos", "openapi.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %q", data)
	}
}
