// internal/sched/registry.go

package sched

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/rs/zerolog"
)

// Registry holds the scheduled tasks in insertion order, keyed by identity.
//
// A Registry is not safe for concurrent use. Register, Logout, Teardown and
// Run must be serialized by the caller; see internal/host for a host that
// does this with a command queue.
type Registry struct {
	priority bool
	capacity int                // 0 = unbounded
	tasks    *linkedhashmap.Map // key -> *task, insertion order = priority order
	clock    Clock              // cost measurement only
	log      zerolog.Logger
	observer func(Event)
}

// New creates an empty registry. When priority is true, earlier registrations
// are serviced before later ones within a Run pass.
func New(priority bool, opts ...Option) *Registry {
	r := &Registry{
		priority: priority,
		tasks:    linkedhashmap.New(),
		clock:    newMonoClock(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Priority reports the mode fixed at creation.
func (r *Registry) Priority() bool { return r.priority }

// Len returns the number of registered tasks.
func (r *Registry) Len() int { return r.tasks.Size() }

// Register schedules fn every intervalMs ticks.
//
// If fn is already registered its interval and enabled state are updated in
// place; its timing state and position are kept and the existing handle is
// returned. New tasks are appended at the end of the sequence.
func (r *Registry) Register(fn Runner, intervalMs int64, enabled bool) (Handle, error) {
	key, err := keyOf(fn)
	if err != nil {
		return Handle{}, err
	}
	if intervalMs <= 0 {
		return Handle{}, fmt.Errorf("%w: got %d", ErrInvalidInterval, intervalMs)
	}

	if t := r.get(key); t != nil {
		t.interval = intervalMs
		t.enabled = enabled
		r.log.Debug().Str("task", t.name).Int64("interval_ms", intervalMs).Bool("enabled", enabled).Msg("task updated")
		r.emit(Event{Kind: EventUpdate, Name: t.name, Interval: t.interval, Drift: t.drift})
		return Handle{reg: r, key: key}, nil
	}

	if r.capacity > 0 && r.tasks.Size() >= r.capacity {
		return Handle{}, fmt.Errorf("%w: capacity %d", ErrOutOfMemory, r.capacity)
	}

	t := &task{
		runner:   fn,
		name:     nameOf(fn),
		interval: intervalMs,
		enabled:  enabled,
	}
	r.tasks.Put(key, t)
	r.log.Debug().Str("task", t.name).Int64("interval_ms", intervalMs).Bool("enabled", enabled).Int("size", r.tasks.Size()).Msg("task registered")
	r.emit(Event{Kind: EventRegister, Name: t.name, Interval: t.interval})
	return Handle{reg: r, key: key}, nil
}

// Find returns the handle for fn, if registered.
func (r *Registry) Find(fn Runner) (Handle, bool) {
	key, err := keyOf(fn)
	if err != nil {
		return Handle{}, false
	}
	if r.get(key) == nil {
		return Handle{}, false
	}
	return Handle{reg: r, key: key}, true
}

// Logout removes fn and reports whether it was registered. Handles to it
// become invalid.
func (r *Registry) Logout(fn Runner) bool {
	key, err := keyOf(fn)
	if err != nil {
		return false
	}
	t := r.get(key)
	if t == nil {
		return false
	}
	r.tasks.Remove(key)
	r.log.Debug().Str("task", t.name).Int("size", r.tasks.Size()).Msg("task logged out")
	r.emit(Event{Kind: EventLogout, Name: t.name, Interval: t.interval, Drift: t.drift})
	release(t)
	return true
}

// SetEnabled switches fn on or off. It reports whether fn is registered.
func (r *Registry) SetEnabled(fn Runner, enabled bool) bool {
	h, ok := r.Find(fn)
	if !ok {
		return false
	}
	t := h.lookup()
	if t.enabled == enabled {
		return true
	}
	_, err := r.Register(fn, t.interval, enabled)
	return err == nil
}

// SetInterval changes fn's period. It reports whether fn is registered.
func (r *Registry) SetInterval(fn Runner, intervalMs int64) (bool, error) {
	h, ok := r.Find(fn)
	if !ok {
		return false, nil
	}
	if _, err := r.Register(fn, intervalMs, h.lookup().enabled); err != nil {
		return true, err
	}
	return true, nil
}

// Teardown releases every task and leaves the registry empty. Tasks an
// observer registers while the teardown is in progress are released too.
// The registry may be reused afterwards.
func (r *Registry) Teardown() {
	released := 0
	for r.tasks.Size() > 0 {
		keys := r.tasks.Keys()
		for i := 0; i < len(keys); i++ {
			key := keys[i]
			t := r.get(key)
			if t == nil {
				continue
			}
			r.tasks.Remove(key)
			r.emit(Event{Kind: EventTeardown, Name: t.name, Interval: t.interval, Drift: t.drift})
			release(t)
			released++
		}
	}
	r.log.Debug().Int("released", released).Msg("registry torn down")
}

// Snapshot returns the state of every task in sequence order.
func (r *Registry) Snapshot() []TaskInfo {
	out := make([]TaskInfo, 0, r.tasks.Size())
	it := r.tasks.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*task).info(len(out)))
	}
	return out
}

func (r *Registry) get(key any) *task {
	v, ok := r.tasks.Get(key)
	if !ok {
		return nil
	}
	return v.(*task)
}

// position returns key's index in the sequence, or -1.
func (r *Registry) position(key any) int {
	i := 0
	it := r.tasks.Iterator()
	for it.Next() {
		if it.Key() == key {
			return i
		}
		i++
	}
	return -1
}

func (r *Registry) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

// release drops the task's references so a stale pointer held by an
// in-flight Run pass cannot fire it.
func release(t *task) {
	t.runner = nil
	t.enabled = false
}
