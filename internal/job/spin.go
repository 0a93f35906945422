package job

import (
	"time"
)

// Spin is a task body that occupies the dispatcher for a fixed time, standing
// in for work with a real cost (sensor reads, bus transfers).
type Spin struct {
	name string
	work time.Duration
	runs uint64
}

// NewSpin returns a body that blocks for ms milliseconds per run.
func NewSpin(name string, ms int64) *Spin {
	if ms < 0 {
		ms = 0
	}
	return &Spin{name: name, work: time.Duration(ms) * time.Millisecond}
}

func (s *Spin) Name() string { return s.name }

func (s *Spin) Run() {
	s.runs++
	if s.work > 0 {
		time.Sleep(s.work)
	}
}

// Runs returns how many times the body has run.
func (s *Spin) Runs() uint64 { return s.runs }
