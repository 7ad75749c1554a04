package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	logx "hotcron/pkg/logx"
)

// ErrKilled marks an execution that was terminated before it finished.
var ErrKilled = errors.New("execution killed")

// Config controls how commands are launched.
//
// Defaults (when fields are empty/zero):
//   - shell: /bin/sh
//   - shell_flag: -c
//   - wait_delay: 2s
type Config struct {
	Shell     string
	ShellFlag string
	Dir       string
	Env       []string // appended to the daemon's own environment

	// WaitDelay bounds how long Wait keeps reading output after the process
	// was killed (grandchildren may still hold the pipes open).
	WaitDelay time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Shell) == "" {
		c.Shell = "/bin/sh"
	}
	if strings.TrimSpace(c.ShellFlag) == "" {
		c.ShellFlag = "-c"
	}
	if c.WaitDelay <= 0 {
		c.WaitDelay = 2 * time.Second
	}
	return c
}

// Outcome is the terminal result of one execution.
//
// Err == nil means success. Non-zero exit, spawn failure and signal
// termination are all failures; a killed execution additionally has
// Killed set and Err wrapping ErrKilled.
type Outcome struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Err      error         `json:"-"`
	ExitCode int           `json:"exit_code"`
	Killed   bool          `json:"killed"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

func (o Outcome) Success() bool { return o.Err == nil }

type Runner struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: cfg.withDefaults(), log: log}
}

// Execution is a handle on one launched command.
type Execution struct {
	Command string
	PID     int

	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// Done is closed once the outcome is available.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Outcome blocks until the execution has finished and returns its result.
func (e *Execution) Outcome() Outcome {
	<-e.done
	return e.outcome
}

// Wait waits for the outcome or ctx, whichever comes first.
func (e *Execution) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-e.done:
		return e.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Kill terminates the execution's process group. It is a no-op once the
// execution has finished.
func (e *Execution) Kill() { e.cancel() }

// Launch starts command through the shell and returns immediately.
//
// The execution is bound to ctx: when ctx is done the process group is
// killed and the outcome reports ErrKilled. Exactly one outcome is produced,
// including when the shell cannot be started.
func (r *Runner) Launch(ctx context.Context, command string) *Execution {
	rctx, cancel := context.WithCancel(ctx)
	e := &Execution{
		Command: command,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(rctx, r.cfg.Shell, r.cfg.ShellFlag, command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = r.cfg.Dir
	if len(r.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cfg.Env...)
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = r.cfg.WaitDelay

	started := time.Now()
	if err := cmd.Start(); err != nil {
		e.outcome = Outcome{
			Err:      fmt.Errorf("start %s: %w", r.cfg.Shell, err),
			ExitCode: -1,
			Started:  started,
		}
		cancel()
		// A context cancelled before the start counts as a kill.
		if ctx.Err() != nil {
			e.outcome.Killed = true
			e.outcome.Err = fmt.Errorf("%w: %v", ErrKilled, err)
			close(e.done)
			r.log.Debug("execution killed before start", logx.String("command", command))
			return e
		}
		close(e.done)
		r.log.Warn("execution failed to start", logx.String("command", command), logx.Err(err))
		return e
	}
	e.PID = cmd.Process.Pid
	r.log.Debug("execution started", logx.String("command", command), logx.Int("pid", e.PID))

	go func() {
		defer close(e.done)
		err := cmd.Wait()

		o := Outcome{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: -1,
			Started:  started,
			Duration: time.Since(started),
		}
		if cmd.ProcessState != nil {
			o.ExitCode = cmd.ProcessState.ExitCode()
		}
		switch {
		case err == nil:
		case rctx.Err() != nil:
			o.Killed = true
			o.Err = fmt.Errorf("%w: %v", ErrKilled, err)
		default:
			o.Err = err
		}
		cancel()
		e.outcome = o

		r.log.Debug("execution finished",
			logx.String("command", command),
			logx.Int("pid", e.PID),
			logx.Int("exit_code", o.ExitCode),
			logx.Bool("killed", o.Killed),
			logx.Duration("took", o.Duration),
		)
	}()
	return e
}
