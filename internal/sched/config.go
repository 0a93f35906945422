package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS   int          `yaml:"tick_ms"`  // 1 (by default)
	Priority bool         `yaml:"priority"` // false (by default)
	Capacity int          `yaml:"capacity"` // 0 = unbounded
	Tasks    []TaskConfig `yaml:"tasks"`
}

// TaskConfig describes one task to register.
type TaskConfig struct {
	Name       string `yaml:"name"`
	Job        string `yaml:"job"`
	IntervalMS int64  `yaml:"interval_ms"`
	Enabled    *bool  `yaml:"enabled"` // nil = true
	WorkMS     int64  `yaml:"work_ms"`
}

// IsEnabled reports the configured state, defaulting to true.
func (tc TaskConfig) IsEnabled() bool {
	return tc.Enabled == nil || *tc.Enabled
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS: 1,
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only. Task entries are validated; intervals are left for Register
// to reject.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	// sanity clamps
	if cfg.TickMS <= 0 {
		cfg.TickMS = 1
	}
	if cfg.Capacity < 0 {
		cfg.Capacity = 0
	}

	seen := make(map[string]bool, len(cfg.Tasks))
	for i := range cfg.Tasks {
		tc := &cfg.Tasks[i]
		tc.Name = strings.TrimSpace(tc.Name)
		tc.Job = strings.ToLower(strings.TrimSpace(tc.Job))
		if tc.Name == "" {
			return defaultConfig(), fmt.Errorf("config %s: task %d: name required", path, i)
		}
		if seen[tc.Name] {
			return defaultConfig(), fmt.Errorf("config %s: duplicate task name %q", path, tc.Name)
		}
		seen[tc.Name] = true
		if tc.WorkMS < 0 {
			tc.WorkMS = 0
		}
	}

	return cfg, nil
}
