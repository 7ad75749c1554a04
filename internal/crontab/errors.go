package crontab

import "fmt"

// StorageError reports a failure creating or reading the crontab file.
type StorageError struct {
	Op   string // "create" | "stat" | "read"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("crontab %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WatchError reports a failure establishing or running the file watch.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("crontab watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }
