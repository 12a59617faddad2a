package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "library.db")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	idx := filepath.Join(dir, "bleve")
	if err := os.MkdirAll(filepath.Join(idx, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idx, "index_meta.json"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idx, "store", "root.bolt"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(idx)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("dir: got %d bytes, want 3", got)
	}

	// Sidecars that do not exist are skipped.
	got, err = DiskUsageBytes(append(DatabaseFiles(f1), idx, "", ":memory:")...)
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("db+index: got %d bytes, want 8", got)
	}
}

func TestDatabaseFiles(t *testing.T) {
	if got := DatabaseFiles(":memory:"); got != nil {
		t.Errorf("memory db: got %v", got)
	}
	got := DatabaseFiles("/tmp/x.db")
	if len(got) != 3 || got[1] != "/tmp/x.db-wal" || got[2] != "/tmp/x.db-shm" {
		t.Errorf("got %v", got)
	}
}
