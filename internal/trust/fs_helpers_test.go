package trust

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCalculateDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "file1.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file2.txt"), []byte("world!"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if size := calculateDirSize(dir); size != 11 {
		t.Fatalf("expected 11 bytes, got %d", size)
	}
}

func TestCalculateDirSizeNonexistent(t *testing.T) {
	if size := calculateDirSize(filepath.Join(os.TempDir(), "coheara-does-not-exist")); size != 0 {
		t.Fatalf("expected 0 bytes for a nonexistent directory, got %d", size)
	}
}

func TestCountDirContents(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aaa"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("bbbbb"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	count, bytes := countDirContents(dir)
	if count != 2 {
		t.Fatalf("expected 2 files, got %d", count)
	}
	if bytes != 8 {
		t.Fatalf("expected 8 bytes, got %d", bytes)
	}
}
