package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_CreateAndList(t *testing.T) {
	fs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "frames", "nested")

	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, name := range []string{"b.png", "a.png"} {
		w, err := fs.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := w.Write([]byte("x")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		w.Close()
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	names, err := fs.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a.png" || names[1] != "b.png" {
		t.Errorf("expected [a.png b.png], got %v", names)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("hello, world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := mfs.Open("/out/created.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello, world" {
		t.Errorf("expected %q, got %q", "hello, world", data)
	}
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/missing.png"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_ListFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/frames/0002.png", []byte("b"))
	mfs.WriteFile("/frames/0001.png", []byte("a"))
	mfs.WriteFile("/frames/deeper/0003.png", []byte("c"))
	mfs.WriteFile("/other/0004.png", []byte("d"))

	names, err := mfs.ListFiles("/frames")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "0001.png" || names[1] != "0002.png" {
		t.Errorf("expected [0001.png 0002.png], got %v", names)
	}

	if _, err := mfs.ListFiles("/nowhere"); err == nil {
		t.Error("expected error listing a missing directory")
	}

	if err := mfs.MkdirAll("/empty/dir", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	names, err = mfs.ListFiles("/empty/dir")
	if err != nil {
		t.Fatalf("ListFiles on empty dir failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no files, got %v", names)
	}
	if !mfs.Exists("/empty") {
		t.Error("expected parent directory to exist")
	}
}

func TestMemoryFileSystem_Paths(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/outputs/2x2/b.jpg", nil)
	mfs.WriteFile("/outputs/2x2/a.jpg", nil)
	mfs.WriteFile("/elsewhere/c.jpg", nil)

	got := mfs.Paths("/outputs/")
	if len(got) != 2 || got[0] != "/outputs/2x2/a.jpg" {
		t.Errorf("unexpected paths %v", got)
	}
}
