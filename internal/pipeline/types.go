package pipeline

import (
	"time"

	"hotcron/internal/crontab"
	"hotcron/internal/task/runner"
	"hotcron/internal/task/scheduler"
	logx "hotcron/pkg/logx"
)

const defaultBuffer = 16

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	Scheduler scheduler.Config
	Runner    runner.Config

	// Buffer is the capacity of each feed channel (default 16).
	Buffer int

	Log logx.Logger
}

// ConfigUpdate is one successful read of the crontab file.
type ConfigUpdate struct {
	Generation uint64         `json:"generation"`
	Config     crontab.Config `json:"config"`
	ReadAt     time.Time      `json:"read_at"`
}

// Instruction pairs a schedule with the outcome of one execution of its
// command.
type Instruction struct {
	RunID       string         `json:"run_id"`
	Generation  uint64         `json:"generation"`
	Index       int            `json:"index"`
	Schedule    string         `json:"schedule"`
	Instruction string         `json:"instruction"`
	Outcome     runner.Outcome `json:"outcome"`
}
