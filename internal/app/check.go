package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"hotcron/internal/crontab"
	"hotcron/internal/task/scheduler"
	logx "hotcron/pkg/logx"
)

// ErrRejected is returned by Check when at least one entry's schedule is
// invalid.
var ErrRejected = errors.New("crontab has rejected entries")

// Check reads the crontab at path, validates every entry and writes the next
// n fire times of each valid one to w. The file is never created.
func Check(w io.Writer, path string, cfg scheduler.Config, n int, now time.Time) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &crontab.StorageError{Op: "read", Path: path, Err: err}
	}
	entries, err := crontab.NewStore(path).Load()
	if err != nil {
		return err
	}

	sched := scheduler.New(cfg, logx.Nop(), nil)
	rejected := 0
	for i, e := range entries {
		next, err := sched.Preview(e.Schedule, now, n)
		if err != nil {
			rejected++
			fmt.Fprintf(w, "%3d  REJECTED  %q: %v\n", i, e.Schedule, err)
			continue
		}
		fmt.Fprintf(w, "%3d  %-20s %s\n", i, e.Schedule, e.Command)
		for _, t := range next {
			fmt.Fprintf(w, "       next: %s\n", t.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(w, "%d entries, %d rejected\n", len(entries), rejected)
	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRejected, rejected, len(entries))
	}
	return nil
}
