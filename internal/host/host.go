// Package host drives a sched.Registry from a tick clock.
//
// The registry itself has no locking. Host gives it a single owner: the Run
// goroutine services ticks and, between ticks, executes mutations that other
// goroutines submit through Do.
package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"millisched/internal/job"
	"millisched/internal/sched"
)

var (
	ErrStopped = errors.New("host: stopped")
	ErrRunning = errors.New("host: already running")
)

type command struct {
	fn   func(*sched.Registry) error
	done chan error
}

type entry struct {
	cfg    sched.TaskConfig
	runner sched.Runner
}

// Host owns a registry, its tick clock and the set of config-defined jobs.
type Host struct {
	cfg   sched.Config
	reg   *sched.Registry
	clock *sched.TickClock
	sink  *Sink
	log   zerolog.Logger

	cmds    chan command
	stopped chan struct{}
	started bool

	jobs map[string]entry // config name -> body

	next   int64 // earliest due tick, valid when hasDue
	hasDue bool
}

// New builds a host for cfg. Tasks are not registered until Load or Apply.
func New(cfg sched.Config, log zerolog.Logger) *Host {
	h := &Host{
		cfg:     cfg,
		clock:   sched.NewTickClock(time.Duration(cfg.TickMS)*time.Millisecond, 64),
		sink:    NewSink(log.With().Str("component", "registry").Logger()),
		log:     log.With().Str("component", "host").Logger(),
		cmds:    make(chan command),
		stopped: make(chan struct{}),
		jobs:    make(map[string]entry),
	}
	h.reg = sched.New(cfg.Priority,
		sched.WithCapacity(cfg.Capacity),
		sched.WithClock(h.clock),
		sched.WithLogger(log.With().Str("component", "sched").Logger()),
		sched.WithObserver(h.sink.Handle),
	)
	return h
}

// Sink returns the event sink, for enabling CSV output before Run.
func (h *Host) Sink() *Sink { return h.sink }

// Load registers cfg's tasks directly. It must not be called once Run has
// started; use Apply then.
func (h *Host) Load(cfg sched.Config) error {
	return h.apply(h.reg, cfg)
}

// Plan lists the upcoming deadlines as of tick now. Like Load, it must not
// be called once Run has started.
func (h *Host) Plan(now int64) []sched.Upcoming {
	return h.reg.Upcoming(now)
}

// Apply reconciles the registry with cfg from any goroutine while Run is
// active. Tasks keep their timing state when only interval or enabled change.
func (h *Host) Apply(ctx context.Context, cfg sched.Config) error {
	return h.Do(ctx, func(reg *sched.Registry) error { return h.apply(reg, cfg) })
}

// Do runs fn on the dispatch goroutine between ticks and returns its error.
func (h *Host) Do(ctx context.Context, fn func(*sched.Registry) error) error {
	done := make(chan error, 1)
	select {
	case h.cmds <- command{fn: fn, done: done}:
	case <-h.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the clock and dispatches until ctx is done, then tears the
// registry down. It returns ctx.Err().
func (h *Host) Run(ctx context.Context) error {
	if h.started {
		return ErrRunning
	}
	h.started = true
	defer close(h.stopped)

	h.clock.Start()
	defer h.clock.Stop()
	h.refresh(0)
	h.log.Info().
		Int("tick_ms", h.cfg.TickMS).
		Bool("priority", h.reg.Priority()).
		Int("tasks", h.reg.Len()).
		Msg("host started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case cmd := <-h.cmds:
			cmd.done <- cmd.fn(h.reg)
			h.refresh(h.clock.Millis())
		case _, ok := <-h.clock.Ch:
			if !ok {
				h.shutdown()
				return ErrStopped
			}
			h.tick(h.clock.Millis())
		}
	}
}

// tick runs one dispatch pass unless nothing can be due yet.
func (h *Host) tick(now int64) {
	if !h.hasDue || now < h.next {
		return
	}
	h.reg.Run(now)
	h.refresh(now)
}

func (h *Host) refresh(now int64) {
	h.next, h.hasDue = h.reg.NextDue(now)
}

func (h *Host) shutdown() {
	for _, ti := range h.reg.Snapshot() {
		h.log.Info().
			Str("task", ti.Name).
			Uint64("fires", ti.Fires).
			Int64("last_cost_ms", ti.LastCost).
			Int64("drift_ms", ti.Drift).
			Msg("task stats")
	}
	h.reg.Teardown()
	h.jobs = make(map[string]entry)
	if err := h.sink.Close(); err != nil {
		h.log.Warn().Err(err).Msg("close event csv")
	}
	h.log.Info().Msg("host stopped")
}

// apply reconciles reg with cfg: removed names are logged out first, then
// each configured task is registered in config order. A changed job kind or
// work cost replaces the body, which appends it at the lowest priority.
func (h *Host) apply(reg *sched.Registry, cfg sched.Config) error {
	if cfg.Priority != reg.Priority() {
		h.log.Warn().Bool("priority", reg.Priority()).Msg("priority mode is fixed at start; ignoring change")
	}

	want := make(map[string]bool, len(cfg.Tasks))
	for _, tc := range cfg.Tasks {
		want[tc.Name] = true
	}
	for name, e := range h.jobs {
		if !want[name] {
			reg.Logout(e.runner)
			delete(h.jobs, name)
		}
	}

	var errs []error
	for _, tc := range cfg.Tasks {
		e, ok := h.jobs[tc.Name]
		if ok && (e.cfg.Job != tc.Job || e.cfg.WorkMS != tc.WorkMS) {
			reg.Logout(e.runner)
			delete(h.jobs, tc.Name)
			ok = false
		}
		if !ok {
			r, err := job.New(tc, h.log)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			e = entry{runner: r}
		}
		if _, err := reg.Register(e.runner, tc.IntervalMS, tc.IsEnabled()); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", tc.Name, err))
			continue
		}
		e.cfg = tc
		h.jobs[tc.Name] = e
	}
	if reg.Priority() {
		h.checkOrder(reg, cfg)
	}
	return errors.Join(errs...)
}

// checkOrder warns when the registry's priority order no longer follows the
// config file. Registration order is kept across reloads, so moving an entry
// in the file does not change its rank, and a replaced body drops to the end.
func (h *Host) checkOrder(reg *sched.Registry, cfg sched.Config) {
	var want []string
	for _, tc := range cfg.Tasks {
		if _, ok := h.jobs[tc.Name]; ok {
			want = append(want, tc.Name)
		}
	}
	var got []string
	for _, ti := range reg.Snapshot() {
		if _, ok := h.jobs[ti.Name]; ok {
			got = append(got, ti.Name)
		}
	}
	if slices.Equal(want, got) {
		return
	}
	h.log.Warn().
		Strs("config_order", want).
		Strs("priority_order", got).
		Msg("priority order differs from config order; restart to apply the config order")
}
