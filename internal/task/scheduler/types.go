package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
	"hotcron/internal/crontab"
	logx "hotcron/pkg/logx"
)

var ErrStopped = errors.New("scheduler stopped")

// Config controls the scheduler service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Europe/Berlin"; empty means Local

	// Parser evaluates schedule expressions. Nil uses the standard five-field
	// parser with descriptor support (@hourly, @every 1h, ...).
	Parser cron.ScheduleParser
}

// Trigger is emitted every time an active job fires. It carries no process
// state; it is only the intent to run Command.
type Trigger struct {
	Generation uint64    `json:"generation"`
	Index      int       `json:"index"`
	Schedule   string    `json:"schedule"`
	Command    string    `json:"command"`
	FiredAt    time.Time `json:"fired_at"`
}

// ScheduleError reports one entry whose schedule the parser rejected.
// The entry is skipped; the rest of the generation is still scheduled.
type ScheduleError struct {
	Index int
	Entry crontab.Entry
	Err   error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("entry %d: invalid schedule %q: %v", e.Index, e.Entry.Schedule, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// job binds one entry to its cron registration for a single generation.
type job struct {
	id         cron.EntryID
	index      int
	entry      crontab.Entry
	generation uint64
}

type Service struct {
	mu sync.Mutex

	log  logx.Logger
	cfg  Config
	loc  *time.Location
	emit func(Trigger)

	parser  cron.ScheduleParser
	c       *cron.Cron
	running bool
	stopped bool

	gen      uint64
	jobs     []job
	rejected []ScheduleError

	// Stale firing reports are throttled; they can be bursty right after a reload.
	staleLimiter *rate.Limiter
	staleDropped uint64
}

type JobInfo struct {
	ID       cron.EntryID
	Index    int
	Schedule string
	Command  string
	Next     time.Time
	Prev     time.Time
}

type Snapshot struct {
	Running      bool
	Timezone     string
	Generation   uint64
	Jobs         []JobInfo
	Rejected     []ScheduleError
	StaleDropped uint64
}
