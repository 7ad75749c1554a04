// Package scheduler turns parsed crontab entries into live cron jobs.
//
// The service owns exactly one active job set (a generation) at any time.
// Applying a newer generation removes every job of the previous one before
// registering the new entries, and firings that race with a replacement are
// recognised by their generation and dropped. The scheduler only emits
// triggers; running the command is the caller's business.
package scheduler
