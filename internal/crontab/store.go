package crontab

import (
	"errors"
	"io/fs"
	"os"
)

// Store reads the crontab file, creating it empty when it does not exist.
//
// Reads are independent and idempotent, so a Store needs no locking and may be
// shared by concurrent readers.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// EnsureExists creates an empty file at the store path if nothing is there.
// Parent directories are not created.
func (s *Store) EnsureExists() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "stat", Path: s.path, Err: err}
	}
	// O_EXCL is not used: losing a creation race to another writer is fine.
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &StorageError{Op: "create", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &StorageError{Op: "create", Path: s.path, Err: err}
	}
	return nil
}

// ReadAll ensures the file exists and returns its full content.
func (s *Store) ReadAll() (string, error) {
	if err := s.EnsureExists(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return "", &StorageError{Op: "read", Path: s.path, Err: err}
	}
	return string(b), nil
}

// Load reads and parses the file in one step.
func (s *Store) Load() (Config, error) {
	raw, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}
