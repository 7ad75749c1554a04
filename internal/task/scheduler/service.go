package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
	logx "hotcron/pkg/logx"
)

const staleWarnThrottle = 5 * time.Second

// New builds a scheduler. emit is called (from a cron goroutine) for every
// firing of an active job; it may block, and Stop waits for it to return.
func New(cfg Config, log logx.Logger, emit func(Trigger)) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if emit == nil {
		emit = func(Trigger) {}
	}
	parser := cfg.Parser
	if parser == nil {
		parser = NewParser()
	}
	s := &Service{
		cfg:          cfg,
		log:          log,
		emit:         emit,
		parser:       parser,
		staleLimiter: rate.NewLimiter(rate.Every(staleWarnThrottle), 1),
	}
	s.loc = s.loadLocationLocked()
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{log: log}),
		cron.WithChain(cron.Recover(cronLogger{log: log})),
	)
	return s
}

// Start starts cron triggering. Jobs applied before Start begin firing now.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return
	}
	s.c.Start()
	s.running = true
	s.log.Debug("service started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.jobs)))
}

// Stop removes every job and waits for running callbacks to return (or ctx).
// A stopped service cannot be restarted.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, j := range s.jobs {
		s.c.Remove(j.id)
	}
	n := len(s.jobs)
	s.jobs = nil
	running := s.running
	s.running = false
	s.mu.Unlock()

	if running {
		select {
		case <-s.c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}
	s.log.Debug("service stopped", logx.Int("jobs_removed", n), logx.Duration("took", time.Since(start)))
}

// Generation returns the currently active generation (0 before the first Apply).
func (s *Service) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// cronLogger routes robfig/cron's own logging into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Trace("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
