package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "hotcron/pkg/logx"
)

// DefaultCrontab is the crontab path used when neither the settings file nor
// the command line names one.
const DefaultCrontab = ".scheduler"

// Config is the daemon's settings file.
//
// All durations are Go duration strings (e.g. "500ms", "2s").
//
// Defaults (when fields are omitted):
//   - crontab: $HOME/.scheduler
//   - shell: /bin/sh
//   - shell_flag: -c
//   - timezone: "" (Local)
//   - feed_buffer: 16
//   - kill_wait_delay: "2s"
//   - logging.level: info, logging.console: true
//   - debug.enabled: false
type Config struct {
	Crontab   string `yaml:"crontab" json:"crontab"`
	Shell     string `yaml:"shell" json:"shell"`
	ShellFlag string `yaml:"shell_flag" json:"shell_flag"`
	Timezone  string `yaml:"timezone" json:"timezone"`

	FeedBuffer int `yaml:"feed_buffer" json:"feed_buffer"`

	// KillWaitDelay bounds how long a killed execution may keep its output
	// pipes open before its outcome is reported anyway.
	KillWaitDelay string `yaml:"kill_wait_delay" json:"kill_wait_delay"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Debug   DebugConfig   `yaml:"debug" json:"debug"`
}

// DebugConfig controls the optional HTTP endpoint serving /healthz, /status
// and /debug/pprof/. Token is never logged.
type DebugConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Addr          string `yaml:"addr" json:"addr"` // default: 127.0.0.1:6060
	Token         string `yaml:"token" json:"-"`
	AllowInsecure bool   `yaml:"allow_insecure" json:"allow_insecure"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level" json:"level"`
	Console bool        `yaml:"console" json:"console"`
	File    LoggingFile `yaml:"file" json:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Defaults returns the settings used for every omitted field.
func Defaults() Config {
	return Config{
		Crontab:       defaultCrontabPath(),
		Shell:         "/bin/sh",
		ShellFlag:     "-c",
		FeedBuffer:    16,
		KillWaitDelay: "2s",
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

func defaultCrontabPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return DefaultCrontab
	}
	return filepath.Join(home, DefaultCrontab)
}

// Validate checks field values that the decoder cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Crontab) == "" {
		return &FieldError{Field: "crontab", Msg: "must not be empty"}
	}
	if c.FeedBuffer < 0 {
		return &FieldError{Field: "feed_buffer", Msg: "must be >= 0"}
	}
	if _, err := ParseDurationField("kill_wait_delay", c.KillWaitDelay); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return &FieldError{Field: "timezone", Msg: err.Error()}
		}
	}
	return nil
}

// KillWait returns kill_wait_delay, falling back to 2s.
func (c *Config) KillWait() time.Duration {
	d, err := ParseDurationOrDefault("kill_wait_delay", c.KillWaitDelay, 2*time.Second)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// LogConfig converts the logging section for logx.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// FieldError reports an invalid settings value.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Msg }
