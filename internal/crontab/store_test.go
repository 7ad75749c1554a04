package crontab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreCreatesMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".scheduler")
	s := NewStore(path)

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Len() != 0 {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if st.Size() != 0 {
		t.Fatalf("created file size = %d, want 0", st.Size())
	}
}

func TestStoreReadAllKeepsContent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crontab")
	if err := os.WriteFile(path, []byte("0 * * * * echo hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	// EnsureExists must not truncate an existing file.
	if err := s.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	raw, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if raw != "0 * * * * echo hi\n" {
		t.Fatalf("ReadAll = %q", raw)
	}
}

func TestStoreMissingParentIsStorageError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "dir", "crontab")
	_, err := NewStore(path).ReadAll()
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T (%v)", err, err)
	}
	if se.Op != "create" {
		t.Fatalf("Op = %q, want create", se.Op)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}
