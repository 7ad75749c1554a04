// Package app assembles the daemon: settings, logging, the crontab pipeline
// and the goroutines consuming it.
package app
