package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := defaultConfig()
	if cfg.Container.TmpDir != want.Container.TmpDir {
		t.Fatalf("got tmp_dir %q, want %q", cfg.Container.TmpDir, want.Container.TmpDir)
	}
	if cfg.Monitor.IntervalSeconds != want.Monitor.IntervalSeconds {
		t.Fatalf("got interval %d, want %d", cfg.Monitor.IntervalSeconds, want.Monitor.IntervalSeconds)
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Network.Enabled {
		t.Fatalf("want network enabled by default")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portod.conf")
	contents := `
[container]
tmp_dir = "/tmp/scratch"
max_log_size = 4096

[network]
enabled = false

[monitor]
interval_seconds = 5
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Container.TmpDir != "/tmp/scratch" {
		t.Fatalf("got tmp_dir %q, want /tmp/scratch", cfg.Container.TmpDir)
	}
	if cfg.Container.MaxLogSize != 4096 {
		t.Fatalf("got max_log_size %d, want 4096", cfg.Container.MaxLogSize)
	}
	if cfg.Network.Enabled {
		t.Fatalf("want network disabled")
	}
	if cfg.Monitor.IntervalSeconds != 5 {
		t.Fatalf("got interval %d, want 5", cfg.Monitor.IntervalSeconds)
	}
}

func TestSecondsOrDefault(t *testing.T) {
	if got := secondsOrDefault(0); got.Seconds() != 15 {
		t.Fatalf("got %v, want 15s", got)
	}
	if got := secondsOrDefault(30); got.Seconds() != 30 {
		t.Fatalf("got %v, want 30s", got)
	}
}
