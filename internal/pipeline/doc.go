// Package pipeline wires the crontab file, the scheduler and the runner into
// three observable feeds:
//
//   - Configs: every Config read from the file (initial read + one re-read per
//     modification notification)
//   - Schedules: every Trigger of the currently active job set
//   - Instructions: every command outcome, paired with its schedule
//
// Each call to a feed method starts an independent chain with its own file
// watch, scheduler and executions. Every value carries the generation it
// belongs to; a generation starts with each successful read of the file.
//
// Any modification of the file kills every execution still running in that
// chain, including executions whose entry did not change.
package pipeline
