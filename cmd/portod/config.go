package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// daemonConfig mirrors the handful of config().*() accessors task.cpp
// reaches for directly: the container scratch directory and log rotation
// threshold, and whether/how verbosely networking is enabled.
type daemonConfig struct {
	Container struct {
		TmpDir     string `toml:"tmp_dir"`
		MaxLogSize int64  `toml:"max_log_size"`
	} `toml:"container"`
	Network struct {
		Enabled bool `toml:"enabled"`
		Debug   bool `toml:"debug"`
	} `toml:"network"`
	Log struct {
		Verbose bool `toml:"verbose"`
	} `toml:"log"`

	// Monitor controls the background Stats() polling ticker (§4.8).
	Monitor struct {
		IntervalSeconds int `toml:"interval_seconds"`
	} `toml:"monitor"`
}

func defaultConfig() *daemonConfig {
	cfg := &daemonConfig{}
	cfg.Container.TmpDir = "/var/lib/porto/tmp"
	cfg.Container.MaxLogSize = 8 << 20
	cfg.Network.Enabled = true
	cfg.Monitor.IntervalSeconds = 15
	return cfg
}

// loadConfig reads path on top of the defaults. A missing file is not an
// error — the daemon runs on defaults, matching how most of the examples'
// config loaders treat an absent config file as "use built-ins".
func loadConfig(path string) (*daemonConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
