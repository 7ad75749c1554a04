package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"hotcron/internal/crontab"
	"hotcron/internal/task/runner"
	"hotcron/internal/task/scheduler"
	logx "hotcron/pkg/logx"
)

const rereadWarnThrottle = 5 * time.Second

type Pipeline struct {
	opts    Options
	log     logx.Logger
	store   *crontab.Store
	watcher *crontab.Watcher
	runner  *runner.Runner
}

func New(path string, opts Options) *Pipeline {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	store := crontab.NewStore(path)
	return &Pipeline{
		opts:    opts,
		log:     log,
		store:   store,
		watcher: crontab.NewWatcher(store, log.With(logx.String("comp", "watcher"))),
		runner:  runner.New(opts.Runner, log.With(logx.String("comp", "runner"))),
	}
}

func (p *Pipeline) Path() string { return p.store.Path() }

// Configs emits the initial Config (generation 1) and then one Config per
// modification notification. A missing file is created empty.
func (p *Pipeline) Configs(ctx context.Context) *Subscription[ConfigUpdate] {
	return subscribe(ctx, p.opts.Buffer, func(ctx context.Context, out chan<- ConfigUpdate) error {
		return p.watchLoop(ctx, loopHooks{
			update: func(u ConfigUpdate) bool { return send(ctx, out, u) },
		})
	})
}

// Schedules emits one Trigger per firing of the currently active job set.
// Jobs of a superseded generation never emit.
func (p *Pipeline) Schedules(ctx context.Context) *Subscription[scheduler.Trigger] {
	return subscribe(ctx, p.opts.Buffer, func(ctx context.Context, out chan<- scheduler.Trigger) error {
		return p.scheduleLoop(ctx, func(ctx context.Context, tr scheduler.Trigger) {
			send(ctx, out, tr)
		}, nil)
	})
}

// Instructions launches the command of every Trigger and emits one
// Instruction per execution once it has finished.
//
// Every modification notification kills all executions still running,
// whether or not their entry changed. Those executions are reported with
// Outcome.Killed set.
func (p *Pipeline) Instructions(ctx context.Context) *Subscription[Instruction] {
	return subscribe(ctx, p.opts.Buffer, func(ctx context.Context, out chan<- Instruction) error {
		ep := newEpochs(ctx)
		err := p.scheduleLoop(ctx, func(ctx context.Context, tr scheduler.Trigger) {
			p.launch(ctx, ep, tr, out)
		}, func() {
			if n := ep.rotate(); n > 0 {
				p.log.Info("crontab changed; killing running executions", logx.Int("count", n))
			}
		})
		// Watch and scheduler are gone; nothing launches anymore.
		ep.close()
		return err
	})
}

type loopHooks struct {
	// changed runs on every notification, before the file is re-read.
	changed func()
	// update receives every successful read; returning false ends the loop.
	update func(ConfigUpdate) bool
}

// watchLoop is the single writer of a chain: it owns the generation counter
// and serializes reads, so generations are strictly increasing.
func (p *Pipeline) watchLoop(ctx context.Context, hooks loopHooks) error {
	// Watch before the first read so no modification goes unnoticed.
	w, err := p.watcher.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	var gen uint64
	warn := rate.NewLimiter(rate.Every(rereadWarnThrottle), 1)

	raw, err := p.store.ReadAll()
	if err != nil {
		return err
	}
	gen++
	if !hooks.update(ConfigUpdate{Generation: gen, Config: crontab.Parse(raw), ReadAt: time.Now()}) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Events():
			if !ok {
				<-w.Done()
				if ctx.Err() != nil {
					return nil
				}
				return w.Err()
			}
			if hooks.changed != nil {
				hooks.changed()
			}
			raw, err := p.store.ReadAll()
			if err != nil {
				if warn.Allow() {
					p.log.Warn("crontab re-read failed; keeping current schedule",
						logx.String("path", p.store.Path()),
						logx.Uint64("generation", gen),
						logx.Err(err),
					)
				}
				continue
			}
			gen++
			p.log.Debug("crontab reloaded", logx.Uint64("generation", gen))
			if !hooks.update(ConfigUpdate{Generation: gen, Config: crontab.Parse(raw), ReadAt: time.Now()}) {
				return nil
			}
		}
	}
}

// scheduleLoop runs a scheduler fed by watchLoop. onTrigger is called from a
// cron goroutine with a context that is cancelled before the scheduler stops.
func (p *Pipeline) scheduleLoop(ctx context.Context, onTrigger func(context.Context, scheduler.Trigger), changed func()) error {
	sctx, cancel := context.WithCancel(ctx)

	var sched *scheduler.Service
	sched = scheduler.New(p.opts.Scheduler, p.log.With(logx.String("comp", "scheduler")), func(tr scheduler.Trigger) {
		if sctx.Err() != nil {
			return
		}
		// Narrow the window between a firing and a concurrent Apply.
		if cur := sched.Generation(); cur != tr.Generation {
			p.log.Debug("trigger of superseded generation dropped",
				logx.Uint64("generation", tr.Generation),
				logx.Uint64("active", cur),
				logx.Int("index", tr.Index),
			)
			return
		}
		onTrigger(sctx, tr)
	})
	sched.Start()

	err := p.watchLoop(sctx, loopHooks{
		changed: changed,
		update: func(u ConfigUpdate) bool {
			// Rejected entries are logged by the scheduler and skipped.
			_ = sched.Apply(u.Generation, u.Config)
			return true
		},
	})

	// Unblock callbacks waiting on the consumer, then stop the scheduler.
	cancel()
	sched.Stop(context.Background())
	return err
}
