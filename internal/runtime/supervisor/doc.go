// Package supervisor runs the daemon's long-lived goroutines under one
// cancellable context.
package supervisor
