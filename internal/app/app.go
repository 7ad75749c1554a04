package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"hotcron/internal/config"
	"hotcron/internal/observability/pprof"
	"hotcron/internal/pipeline"
	"hotcron/internal/runtime/supervisor"
	"hotcron/internal/task/runner"
	"hotcron/internal/task/scheduler"
	logx "hotcron/pkg/logx"
)

const maxLoggedOutput = 4 << 10

// Options are command-line overrides; empty fields keep the settings file
// values.
type Options struct {
	ConfigPath string
	Crontab    string
	LogLevel   string
}

type App struct {
	cfgm *config.Manager
	cfg  *config.Config
	opts Options

	log  logx.Logger
	logs *logx.Service
	pipe *pipeline.Pipeline
	sup  *supervisor.Supervisor

	debug *pprof.Service
	stats stats
}

func New(opts Options) (*App, error) {
	cfgm := config.NewManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	applyOverrides(cfg, opts)

	logSvc, log := logx.New(cfg.LogConfig())
	log = log.With(logx.String("comp", "app"))

	pipe := pipeline.New(cfg.Crontab, pipelineOptions(cfg, log))

	a := &App{
		cfgm: cfgm,
		cfg:  cfg,
		opts: opts,
		log:  log,
		logs: logSvc,
		pipe: pipe,
	}
	a.debug = pprof.New(pprof.Config{
		Enabled:       cfg.Debug.Enabled,
		Addr:          cfg.Debug.Addr,
		Token:         cfg.Debug.Token,
		AllowInsecure: cfg.Debug.AllowInsecure,
	}, log.With(logx.String("comp", "debug")), a.Status)
	return a, nil
}

func applyOverrides(cfg *config.Config, opts Options) {
	if s := strings.TrimSpace(opts.Crontab); s != "" {
		cfg.Crontab = s
	}
	if s := strings.TrimSpace(opts.LogLevel); s != "" {
		cfg.Logging.Level = s
	}
}

func pipelineOptions(cfg *config.Config, log logx.Logger) pipeline.Options {
	return pipeline.Options{
		Scheduler: SchedulerConfig(cfg),
		Runner: runner.Config{
			Shell:     cfg.Shell,
			ShellFlag: cfg.ShellFlag,
			WaitDelay: cfg.KillWait(),
		},
		Buffer: cfg.FeedBuffer,
		Log:    log.With(logx.String("comp", "pipeline")),
	}
}

// SchedulerConfig maps the settings to the scheduler's config.
func SchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Timezone: cfg.Timezone}
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the app supervisor context is cancelled (fatal error
// or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "settings")))

	instructions := a.pipe.Instructions(a.sup.Context())
	a.sup.Go("pipeline.instructions", func(c context.Context) error {
		for in := range instructions.C() {
			a.stats.record(in)
			a.logInstruction(in)
		}
		return instructions.Err()
	})

	if a.debug.Enabled() {
		a.sup.GoRestart("debug.serve", 500*time.Millisecond, 10*time.Second, a.debug.Serve)
	}

	a.sup.GoRestart("settings.watch", 250*time.Millisecond, 5*time.Second, a.cfgm.Watch)
	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("settings.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfg
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				next = a.mergeOverrides(next)
				a.applySettings(last, next)
				last = next
			}
		}
	})

	a.log.Info("started",
		logx.String("crontab", a.pipe.Path()),
		logx.String("settings", a.cfgm.Path()),
		logx.String("shell", a.cfg.Shell),
	)
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified", logx.String("state", daemon.SdNotifyReady))
	}
	return nil
}

func (a *App) mergeOverrides(cfg *config.Config) *config.Config {
	c := *cfg
	applyOverrides(&c, a.opts)
	return &c
}

// applySettings applies the logging section at runtime; everything else
// needs a restart.
func (a *App) applySettings(prev, next *config.Config) {
	sections, attrs, restart := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Debug("settings reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("settings changed", fields...)
	if restart {
		a.log.Warn("settings changed that only take effect after restart")
	}
	a.logs.Apply(next.LogConfig())
}

func (a *App) logInstruction(in pipeline.Instruction) {
	o := in.Outcome
	fields := []logx.Field{
		logx.String("run_id", in.RunID),
		logx.Uint64("generation", in.Generation),
		logx.String("schedule", in.Schedule),
		logx.String("instruction", in.Instruction),
		logx.Int("exit_code", o.ExitCode),
		logx.Duration("took", o.Duration),
	}
	if s := clip(o.Stdout); s != "" {
		fields = append(fields, logx.String("stdout", s))
	}
	if s := clip(o.Stderr); s != "" {
		fields = append(fields, logx.String("stderr", s))
	}
	switch {
	case o.Success():
		a.log.Info("instruction succeeded", fields...)
	case o.Killed:
		a.log.Info("instruction killed", fields...)
	default:
		a.log.Warn("instruction failed", append(fields, logx.Err(o.Err))...)
	}
}

func clip(s string) string {
	s = strings.TrimRight(s, "\n")
	if len(s) > maxLoggedOutput {
		return s[:maxLoggedOutput] + "...(truncated)"
	}
	return s
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("systemd notify failed", logx.Err(err))
	}

	a.sup.Cancel()

	// The pipeline kills running executions on cancel; bound the wait so a
	// process ignoring its pipes cannot stall shutdown.
	stepCtx, cancel := context.WithTimeout(ctx, a.cfg.KillWait()+3*time.Second)
	defer cancel()
	start := time.Now()
	err := a.sup.Wait(stepCtx)
	if stepCtx.Err() != nil {
		a.log.Warn("stop deadline reached (continuing)", logx.Duration("elapsed", time.Since(start)))
	}

	snap := a.sup.Snapshot()
	a.log.Info("stopped", logx.Int64("active", snap.Active), logx.Duration("took", time.Since(start)))
	_ = a.logs.Close()
	if err != nil && stepCtx.Err() == nil {
		return err
	}
	return nil
}
