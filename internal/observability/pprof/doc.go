// Package pprof serves the optional debug endpoint: liveness, a JSON status
// document and net/http/pprof.
package pprof
