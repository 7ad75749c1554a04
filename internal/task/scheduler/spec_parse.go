package scheduler

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	logx "hotcron/pkg/logx"
)

// NewParser returns the parser used for crontab schedules: the classic five
// fields (minute hour dom month dow) plus descriptors such as "@hourly" or
// "@every 90m". Seconds are not supported because a line only ever
// contributes five tokens to its schedule.
func NewParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

func nextRuns(sched cron.Schedule, from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

// previewNextRunsLocked returns a short, human-friendly list of upcoming run
// times for debug logs. Call with s.mu held.
func (s *Service) previewNextRunsLocked(sched cron.Schedule, n int) string {
	if !s.log.Enabled(logx.LevelDebug) {
		return ""
	}
	var b strings.Builder
	for i, t := range nextRuns(sched, time.Now().In(s.loc), n) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
