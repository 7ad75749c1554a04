package scheduler

import (
	"time"

	logx "hotcron/pkg/logx"
)

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	jobs := make([]job, len(s.jobs))
	copy(jobs, s.jobs)
	rejected := make([]ScheduleError, len(s.rejected))
	copy(rejected, s.rejected)
	snap := Snapshot{
		Running:      s.running,
		Timezone:     s.loc.String(),
		Generation:   s.gen,
		Rejected:     rejected,
		StaleDropped: s.staleDropped,
	}
	c := s.c
	s.mu.Unlock()

	snap.Jobs = make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		it := JobInfo{ID: j.id, Index: j.index, Schedule: j.entry.Schedule, Command: j.entry.Command}
		e := c.Entry(j.id)
		it.Next = e.Next
		it.Prev = e.Prev
		snap.Jobs = append(snap.Jobs, it)
	}
	return snap
}

func (s *Service) reportStale(j job, active uint64) {
	s.mu.Lock()
	s.staleDropped++
	dropped := s.staleDropped
	s.mu.Unlock()

	if !s.staleLimiter.Allow() {
		return
	}
	s.log.Debug("stale firing dropped",
		logx.Uint64("generation", j.generation),
		logx.Uint64("active", active),
		logx.String("schedule", j.entry.Schedule),
		logx.Uint64("stale_dropped", dropped),
		logx.Time("at", time.Now()),
	)
}
