package sched

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) err=%v", path, err)
		}
		if cfg.TickMS != 1 || cfg.Priority || cfg.Capacity != 0 || len(cfg.Tasks) != 0 {
			t.Fatalf("Load(%q) = %+v, want defaults", path, cfg)
		}
	}
}

func TestLoad_Parse(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
tick_ms: 5
priority: true
capacity: 8
tasks:
  - name: " blink "
    job: BLINK
    interval_ms: 500
  - name: sensor
    job: spin
    interval_ms: 20
    work_ms: 3
    enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.TickMS != 5 || !cfg.Priority || cfg.Capacity != 8 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(cfg.Tasks))
	}
	blink, sensor := cfg.Tasks[0], cfg.Tasks[1]
	if blink.Name != "blink" || blink.Job != "blink" || blink.IntervalMS != 500 || !blink.IsEnabled() {
		t.Fatalf("blink = %+v", blink)
	}
	if sensor.WorkMS != 3 || sensor.IsEnabled() {
		t.Fatalf("sensor = %+v", sensor)
	}
}

func TestLoad_Clamps(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
tick_ms: -3
capacity: -1
tasks:
  - name: a
    work_ms: -10
    interval_ms: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.TickMS != 1 || cfg.Capacity != 0 || cfg.Tasks[0].WorkMS != 0 {
		t.Fatalf("cfg = %+v, want clamped values", cfg)
	}
	// Intervals are validated by Register, not by Load.
	if cfg.Tasks[0].IntervalMS != 0 {
		t.Fatalf("IntervalMS = %d, want 0", cfg.Tasks[0].IntervalMS)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "tick_ms: [1, 2\n"},
		{name: "missing name", body: "tasks:\n  - job: spin\n    interval_ms: 10\n"},
		{name: "duplicate name", body: "tasks:\n  - name: a\n    interval_ms: 10\n  - name: a\n    interval_ms: 20\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
