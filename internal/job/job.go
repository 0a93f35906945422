// Package job provides the task bodies a config file can name.
package job

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"millisched/internal/sched"
)

// ErrUnknownKind is returned by New for a job kind not in the catalog.
var ErrUnknownKind = errors.New("job: unknown kind")

type builder func(tc sched.TaskConfig, log zerolog.Logger) sched.Runner

var catalog = map[string]builder{
	"spin": func(tc sched.TaskConfig, _ zerolog.Logger) sched.Runner {
		return NewSpin(tc.Name, tc.WorkMS)
	},
	"counter": func(tc sched.TaskConfig, _ zerolog.Logger) sched.Runner {
		return &Counter{name: tc.Name}
	},
	"blink": func(tc sched.TaskConfig, log zerolog.Logger) sched.Runner {
		return &Blink{name: tc.Name, log: log}
	},
	"log": func(tc sched.TaskConfig, log zerolog.Logger) sched.Runner {
		return &Heartbeat{name: tc.Name, log: log}
	},
}

// New builds the body for tc. An empty kind means "spin". Every call returns
// a distinct Runner, so each config entry is its own task.
func New(tc sched.TaskConfig, log zerolog.Logger) (sched.Runner, error) {
	kind := tc.Job
	if kind == "" {
		kind = "spin"
	}
	b, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (task %s)", ErrUnknownKind, kind, tc.Name)
	}
	return b(tc, log.With().Str("task", tc.Name).Logger()), nil
}

// Kinds lists the catalog, sorted.
func Kinds() []string {
	out := make([]string, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Counter counts its runs. Count is safe to call from other goroutines.
type Counter struct {
	name string
	n    atomic.Uint64
}

func (c *Counter) Name() string  { return c.name }
func (c *Counter) Run()          { c.n.Add(1) }
func (c *Counter) Count() uint64 { return c.n.Load() }

// Blink toggles an output level and logs each edge, the classic LED task.
type Blink struct {
	name string
	on   bool
	log  zerolog.Logger
}

func (b *Blink) Name() string { return b.name }

func (b *Blink) Run() {
	b.on = !b.on
	b.log.Info().Bool("on", b.on).Msg("blink")
}

// On returns the current output level.
func (b *Blink) On() bool { return b.on }

// Heartbeat logs a sequence number on every run.
type Heartbeat struct {
	name string
	seq  uint64
	log  zerolog.Logger
}

func (h *Heartbeat) Name() string { return h.name }

func (h *Heartbeat) Run() {
	h.seq++
	h.log.Info().Uint64("seq", h.seq).Msg("heartbeat")
}
