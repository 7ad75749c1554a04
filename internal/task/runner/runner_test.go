package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	logx "hotcron/pkg/logx"
)

func waitOutcome(t *testing.T, e *Execution, d time.Duration) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	o, err := e.Wait(ctx)
	if err != nil {
		t.Fatalf("waiting for %q: %v", e.Command, err)
	}
	return o
}

func TestLaunchCapturesOutput(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	e := r.Launch(context.Background(), "echo out; echo err >&2")

	o := waitOutcome(t, e, 5*time.Second)
	if !o.Success() {
		t.Fatalf("expected success, got %v", o.Err)
	}
	if o.Stdout != "out\n" {
		t.Fatalf("Stdout = %q", o.Stdout)
	}
	if o.Stderr != "err\n" {
		t.Fatalf("Stderr = %q", o.Stderr)
	}
	if o.ExitCode != 0 || o.Killed {
		t.Fatalf("unexpected outcome: %+v", o)
	}
	if e.PID == 0 {
		t.Fatal("expected PID to be set")
	}
}

func TestLaunchNonZeroExit(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	o := waitOutcome(t, r.Launch(context.Background(), "echo partial; exit 3"), 5*time.Second)

	if o.Success() {
		t.Fatal("expected failure")
	}
	var ee *exec.ExitError
	if !errors.As(o.Err, &ee) {
		t.Fatalf("expected *exec.ExitError, got %T (%v)", o.Err, o.Err)
	}
	if o.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", o.ExitCode)
	}
	if o.Stdout != "partial\n" {
		t.Fatalf("Stdout = %q", o.Stdout)
	}
	if o.Killed || errors.Is(o.Err, ErrKilled) {
		t.Fatal("non-zero exit must not be reported as killed")
	}
}

func TestLaunchSpawnFailure(t *testing.T) {
	t.Parallel()
	r := New(Config{Shell: "/nonexistent/hotcron-shell"}, logx.Nop())
	e := r.Launch(context.Background(), "true")

	select {
	case <-e.Done():
	default:
		t.Fatal("spawn failure should complete immediately")
	}
	o := e.Outcome()
	if o.Success() || o.Killed {
		t.Fatalf("unexpected outcome: %+v", o)
	}
	if o.ExitCode != -1 {
		t.Fatalf("ExitCode = %d, want -1", o.ExitCode)
	}
}

func TestKillTerminatesExecution(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	e := r.Launch(context.Background(), "sleep 5")

	time.Sleep(100 * time.Millisecond)
	e.Kill()

	start := time.Now()
	o := waitOutcome(t, e, 3*time.Second)
	if time.Since(start) > 2500*time.Millisecond {
		t.Fatalf("kill took too long: %s", time.Since(start))
	}
	if !o.Killed || !errors.Is(o.Err, ErrKilled) {
		t.Fatalf("expected killed outcome, got %+v", o)
	}
}

func TestContextCancelKillsProcessGroup(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	// The shell keeps a child (sleep) around; killing only the shell would
	// leave the pipe open until sleep exits.
	e := r.Launch(ctx, "sleep 5; echo finished")

	time.Sleep(100 * time.Millisecond)
	cancel()

	o := waitOutcome(t, e, 3*time.Second)
	if !o.Killed {
		t.Fatalf("expected killed outcome, got %+v", o)
	}
	if o.Stdout != "" {
		t.Fatalf("command should not have finished, Stdout = %q", o.Stdout)
	}
	if o.Duration > 2*time.Second {
		t.Fatalf("Duration = %s, process group not killed promptly", o.Duration)
	}
}

func TestLaunchOnCancelledContextIsKilled(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := waitOutcome(t, r.Launch(ctx, "echo hi"), 5*time.Second)
	if !o.Killed || !errors.Is(o.Err, ErrKilled) {
		t.Fatalf("expected killed outcome, got %+v", o)
	}
	if o.Stdout != "" {
		t.Fatalf("command ran, Stdout = %q", o.Stdout)
	}
}

func TestOutcomeFormatsAsStruct(t *testing.T) {
	t.Parallel()
	got := fmt.Sprintf("%+v", Outcome{Stdout: "hi\n"})
	if !strings.Contains(got, "Stdout:hi") {
		t.Fatalf("formatted outcome = %q", got)
	}
}

func TestKillAfterFinishKeepsOutcome(t *testing.T) {
	t.Parallel()
	r := New(Config{}, logx.Nop())
	e := r.Launch(context.Background(), "echo done")
	o := waitOutcome(t, e, 5*time.Second)
	e.Kill()
	if again := e.Outcome(); again.Stdout != o.Stdout || !again.Success() {
		t.Fatalf("outcome changed after Kill: %+v", again)
	}
}

func TestLaunchEnv(t *testing.T) {
	t.Parallel()
	r := New(Config{Env: []string{"HOTCRON_TEST=42"}}, logx.Nop())
	o := waitOutcome(t, r.Launch(context.Background(), "printf %s \"$HOTCRON_TEST\""), 5*time.Second)
	if o.Stdout != "42" {
		t.Fatalf("Stdout = %q, want 42", o.Stdout)
	}
}
