package config

import (
	"sort"
	"strings"

	logx "hotcron/pkg/logx"
)

// SummarizeChange returns the changed sections and log fields describing the
// new values. Sections other than "logging" only take effect on restart;
// restartRequired reports whether any of them changed.
func SummarizeChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restartRequired bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	if strings.TrimSpace(oldCfg.Crontab) != strings.TrimSpace(newCfg.Crontab) {
		changed = append(changed, "crontab")
		attrs = append(attrs, logx.String("crontab", newCfg.Crontab))
		restartRequired = true
	}
	if oldCfg.Shell != newCfg.Shell || oldCfg.ShellFlag != newCfg.ShellFlag || oldCfg.KillWaitDelay != newCfg.KillWaitDelay {
		changed = append(changed, "runner")
		attrs = append(attrs,
			logx.String("shell", newCfg.Shell),
			logx.String("shell_flag", newCfg.ShellFlag),
			logx.String("kill_wait_delay", newCfg.KillWaitDelay),
		)
		restartRequired = true
	}
	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, "timezone")
		attrs = append(attrs, logx.String("timezone", newCfg.Timezone))
		restartRequired = true
	}
	if oldCfg.FeedBuffer != newCfg.FeedBuffer {
		changed = append(changed, "feed_buffer")
		attrs = append(attrs, logx.Int("feed_buffer", newCfg.FeedBuffer))
		restartRequired = true
	}
	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", newCfg.Debug.Addr),
			logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
		)
		restartRequired = true
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs, restartRequired
}
