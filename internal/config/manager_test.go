package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "hotcron/pkg/logx"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "hotcron.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if *cfg != def {
		t.Fatalf("cfg = %+v, want defaults %+v", *cfg, def)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed settings")
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hotcron.yaml")
	writeFile(t, path, `
crontab: /tmp/tab
timezone: UTC
kill_wait_delay: 500ms
logging:
  level: debug
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crontab != "/tmp/tab" || cfg.Timezone != "UTC" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Shell != "/bin/sh" || cfg.ShellFlag != "-c" || cfg.FeedBuffer != 16 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if got := cfg.KillWait(); got != 500*time.Millisecond {
		t.Fatalf("KillWait = %s", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown field", content: "crontab: /x\nworkers: 3\n", want: "workers"},
		{name: "trailing document", content: "crontab: /x\n---\ncrontab: /y\n", want: "trailing document"},
		{name: "bad duration", content: "kill_wait_delay: soon\n", want: "kill_wait_delay"},
		{name: "negative duration", content: "kill_wait_delay: -1s\n", want: "kill_wait_delay"},
		{name: "bad timezone", content: "timezone: Mars/Olympus\n", want: "timezone"},
		{name: "negative buffer", content: "feed_buffer: -1\n", want: "feed_buffer"},
		{name: "empty crontab", content: "crontab: \"\"\n", want: "crontab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hotcron.yaml")
			writeFile(t, path, tt.content)
			_, err := NewManager(path).Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "", want: 2 * time.Second},
		{raw: "0s", want: 2 * time.Second},
		{raw: " 750ms ", want: 750 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDurationOrDefault("x", tt.raw, 2*time.Second)
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: got %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := Defaults()
	b := a
	b.Logging.Level = "debug"

	changed, _, restart := SummarizeChange(&a, &b)
	if len(changed) != 1 || changed[0] != "logging" || restart {
		t.Fatalf("changed=%v restart=%v", changed, restart)
	}

	b.Shell = "/bin/bash"
	changed, _, restart = SummarizeChange(&a, &b)
	if len(changed) != 2 || !restart {
		t.Fatalf("changed=%v restart=%v", changed, restart)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hotcron.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	m := NewManager(path)
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		writeFile(t, path, "logging:\n  level: debug\n")
		select {
		case cfg := <-ch:
			if cfg.Logging.Level != "debug" {
				t.Fatalf("published level = %q", cfg.Logging.Level)
			}
			return
		case <-time.After(400 * time.Millisecond):
		}
	}
	t.Fatal("no settings published")
}

func TestWatchIgnoresInvalidSettings(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hotcron.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	before := m.Get()
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, "nope: true\n")
	select {
	case cfg := <-ch:
		t.Fatalf("invalid settings published: %+v", cfg)
	case <-time.After(700 * time.Millisecond):
	}
	if m.Get() != before {
		t.Fatal("invalid settings were committed")
	}
}
