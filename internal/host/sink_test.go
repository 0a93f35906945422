package host

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"millisched/internal/sched"
)

func TestSink_CSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.csv")
	s := NewSink(zerolog.Nop())
	if err := s.EnableCSV(path); err != nil {
		t.Fatalf("EnableCSV err=%v", err)
	}

	r := sched.New(false, sched.WithObserver(s.Handle))
	body := sched.Func(func() {})
	r.Register(body, 10, true)
	r.Run(13)
	r.Logout(body)
	if err := s.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][1] != "tick" || rows[0][2] != "event" {
		t.Fatalf("header = %v", rows[0])
	}
	fire := rows[2]
	if fire[1] != "13" || fire[2] != "Fire" || fire[5] != "13" || fire[6] != "3" {
		t.Fatalf("fire row = %v", fire)
	}
	if rows[1][2] != "Register" || rows[3][2] != "Logout" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestSink_EnableCSVTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, second := filepath.Join(dir, "first.csv"), filepath.Join(dir, "second.csv")
	s := NewSink(zerolog.Nop())
	if err := s.EnableCSV(first); err != nil {
		t.Fatalf("EnableCSV(first) err=%v", err)
	}
	firstFile := s.csvFile
	if err := s.EnableCSV(second); err != nil {
		t.Fatalf("EnableCSV(second) err=%v", err)
	}
	// The first file must already be closed.
	if err := firstFile.Close(); err == nil {
		t.Fatalf("first csv file was left open")
	}

	s.Handle(sched.Event{Kind: sched.EventRegister, Name: "a", Interval: 10})
	if err := s.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !strings.Contains(string(data), ",Register,a,") {
		t.Fatalf("second csv missing event:\n%s", data)
	}
	data, err = os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if strings.Contains(string(data), ",Register,a,") {
		t.Fatalf("event written to the replaced file")
	}
}

func TestSink_WarnsOnMissedPeriod(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSink(zerolog.New(&buf).Level(zerolog.WarnLevel))

	s.Handle(sched.Event{Kind: sched.EventFire, Name: "ok", Interval: 100, Elapsed: 120})
	if buf.Len() != 0 {
		t.Fatalf("warned for a small overrun: %s", buf.String())
	}

	s.Handle(sched.Event{Kind: sched.EventFire, Name: "stalled", Interval: 100, Elapsed: 250})
	s.Handle(sched.Event{Kind: sched.EventFire, Name: "slow", Interval: 10, Elapsed: 10, Cost: 12})
	out := buf.String()
	if !strings.Contains(out, `"task":"stalled"`) || !strings.Contains(out, `"task":"slow"`) {
		t.Fatalf("missing warnings: %s", out)
	}

	// The limiter caps a burst of warnings.
	buf.Reset()
	for i := 0; i < 50; i++ {
		s.Handle(sched.Event{Kind: sched.EventFire, Name: "stalled", Interval: 100, Elapsed: 250})
	}
	if n := strings.Count(buf.String(), "\n"); n >= 50 {
		t.Fatalf("warnings not throttled: %d lines", n)
	}
	if s.Close() != nil {
		t.Fatalf("Close without CSV returned an error")
	}
}
