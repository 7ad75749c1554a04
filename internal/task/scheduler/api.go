package scheduler

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"hotcron/internal/crontab"
	logx "hotcron/pkg/logx"
)

// Apply replaces the active job set with one job per entry of cfg.
//
// Every job of the previous generation is removed before the new ones are
// registered, so at most one generation is active at any instant. Entries the
// parser rejects are skipped; the returned error joins one *ScheduleError per
// skipped entry and is nil when everything was scheduled.
//
// A generation that is not newer than the active one is ignored.
func (s *Service) Apply(gen uint64, cfg crontab.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if gen <= s.gen {
		s.log.Debug("stale generation ignored", logx.Uint64("generation", gen), logx.Uint64("active", s.gen))
		return nil
	}

	// Tear down the previous generation first.
	for _, j := range s.jobs {
		s.c.Remove(j.id)
	}
	prev := s.gen
	removed := len(s.jobs)
	s.jobs = make([]job, 0, len(cfg))
	s.rejected = nil
	s.gen = gen

	var errs []error
	for i, e := range cfg {
		sched, err := s.parser.Parse(e.Schedule)
		if err != nil {
			se := ScheduleError{Index: i, Entry: e, Err: err}
			s.rejected = append(s.rejected, se)
			errs = append(errs, &se)
			s.log.Warn("schedule rejected; entry skipped",
				logx.Int("index", i),
				logx.String("schedule", e.Schedule),
				logx.String("command", e.Command),
				logx.Err(err),
			)
			continue
		}
		j := job{index: i, entry: e, generation: gen}
		j.id = s.c.Schedule(sched, s.cronJob(j))
		s.jobs = append(s.jobs, j)

		args := []logx.Field{
			logx.Uint64("generation", gen),
			logx.Int("index", i),
			logx.String("schedule", e.Schedule),
			logx.String("command", e.Command),
		}
		if next := s.previewNextRunsLocked(sched, 3); next != "" {
			args = append(args, logx.String("next", next))
		}
		s.log.Debug("job registered", args...)
	}

	s.log.Info("schedule applied",
		logx.Uint64("generation", gen),
		logx.Uint64("previous", prev),
		logx.Int("removed", removed),
		logx.Int("jobs", len(s.jobs)),
		logx.Int("rejected", len(s.rejected)),
	)
	return errors.Join(errs...)
}

func (s *Service) cronJob(j job) cron.Job {
	return cron.FuncJob(func() { s.fire(j) })
}

// fire runs on a cron goroutine. A firing that lost the race against Apply or
// Stop belongs to a superseded generation and is dropped.
func (s *Service) fire(j job) {
	now := time.Now().In(s.loc)

	s.mu.Lock()
	active := !s.stopped && s.gen == j.generation
	cur := s.gen
	s.mu.Unlock()

	if !active {
		s.reportStale(j, cur)
		return
	}
	s.emit(Trigger{
		Generation: j.generation,
		Index:      j.index,
		Schedule:   j.entry.Schedule,
		Command:    j.entry.Command,
		FiredAt:    now,
	})
}

// Validate reports whether spec would be accepted by this service's parser.
func (s *Service) Validate(spec string) error {
	_, err := s.parser.Parse(spec)
	return err
}

// Preview returns up to n upcoming fire times of spec after from.
func (s *Service) Preview(spec string, from time.Time, n int) ([]time.Time, error) {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return nil, err
	}
	return nextRuns(sched, from.In(s.loc), n), nil
}
