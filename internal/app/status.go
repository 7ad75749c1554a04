package app

import (
	"sync"
	"time"

	"hotcron/internal/pipeline"
	"hotcron/internal/runtime/supervisor"
)

// Status is served on the debug endpoint's /status.
type Status struct {
	Crontab    string              `json:"crontab"`
	Settings   string              `json:"settings,omitempty"`
	Generation uint64              `json:"generation"`
	Succeeded  uint64              `json:"succeeded"`
	Failed     uint64              `json:"failed"`
	Killed     uint64              `json:"killed"`
	Last       *LastRun            `json:"last,omitempty"`
	Supervisor supervisor.Snapshot `json:"supervisor"`
}

type LastRun struct {
	RunID       string        `json:"run_id"`
	Instruction string        `json:"instruction"`
	ExitCode    int           `json:"exit_code"`
	Killed      bool          `json:"killed"`
	Finished    time.Time     `json:"finished"`
	Took        time.Duration `json:"took"`
}

type stats struct {
	mu         sync.Mutex
	generation uint64
	succeeded  uint64
	failed     uint64
	killed     uint64
	last       *LastRun
}

func (s *stats) record(in pipeline.Instruction) {
	o := in.Outcome
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = max(s.generation, in.Generation)
	switch {
	case o.Success():
		s.succeeded++
	case o.Killed:
		s.killed++
	default:
		s.failed++
	}
	s.last = &LastRun{
		RunID:       in.RunID,
		Instruction: in.Instruction,
		ExitCode:    o.ExitCode,
		Killed:      o.Killed,
		Finished:    o.Started.Add(o.Duration),
		Took:        o.Duration,
	}
}

// Status returns a point-in-time view of the running daemon.
func (a *App) Status() any {
	a.stats.mu.Lock()
	st := Status{
		Crontab:    a.pipe.Path(),
		Settings:   a.cfgm.Path(),
		Generation: a.stats.generation,
		Succeeded:  a.stats.succeeded,
		Failed:     a.stats.failed,
		Killed:     a.stats.killed,
		Last:       a.stats.last,
	}
	a.stats.mu.Unlock()
	if a.sup != nil {
		st.Supervisor = a.sup.Snapshot()
	}
	return st
}
