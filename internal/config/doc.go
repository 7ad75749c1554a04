// Package config loads the daemon's YAML settings file and watches it for
// changes. Only the logging section is applied at runtime; the rest is read
// at startup.
package config
