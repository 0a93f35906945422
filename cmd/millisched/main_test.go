package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "priority: true\ntasks:\n  - name: slow\n    job: counter\n    interval_ms: 100\n  - name: fast\n    job: blink\n    interval_ms: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"plan", "--config", path, "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("plan err=%v\n%s", err, out.String())
	}

	got := out.String()
	if !strings.Contains(got, "priority=true") {
		t.Fatalf("missing header: %s", got)
	}
	fast, slow := strings.Index(got, "fast"), strings.Index(got, "slow")
	if fast < 0 || slow < 0 || fast > slow {
		t.Fatalf("expected fast before slow:\n%s", got)
	}
}

func TestRunCommand_Bounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	csvPath := filepath.Join(t.TempDir(), "events.csv")
	body := "tasks:\n  - name: c\n    job: counter\n    interval_ms: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", path, "--csv", csvPath, "--for", "100ms", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("run err=%v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(data), ",Fire,c,") {
		t.Fatalf("no fire events recorded:\n%s", data)
	}
}
