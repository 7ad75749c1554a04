// Package runner launches crontab commands through a shell and reports
// exactly one Outcome per launch.
//
// Each execution runs in its own process group and is bound to a context:
// cancelling the context (or calling Kill) terminates the whole group, so
// commands like "sleep 60; echo done" do not leave orphans behind.
package runner
