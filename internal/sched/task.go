package sched

import (
	"fmt"
	"reflect"
	"runtime"
)

// Runner is one periodic unit of work. Run must return; the scheduler never
// interrupts it.
type Runner interface {
	Run()
}

// Func adapts a plain function to a Runner.
//
// Two Func values are the same task when they share a code pointer. Closures
// created from the same function literal therefore share an identity, and so
// do method values of the same method: Func(a.Poll) and Func(b.Poll) are one
// task, and registering the second updates the first. Give such bodies
// distinct Runner values (for example pointers to small structs, or a and b
// themselves when they implement Run) when they must be scheduled
// independently.
type Func func()

// Run calls f().
func (f Func) Run() { f() }

// funcKey is the identity of a Func: its code pointer.
type funcKey uintptr

// keyOf returns the registry key for r.
func keyOf(r Runner) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil runner", ErrInvalidTask)
	}
	if f, ok := r.(Func); ok {
		if f == nil {
			return nil, fmt.Errorf("%w: nil func", ErrInvalidTask)
		}
		return funcKey(reflect.ValueOf(f).Pointer()), nil
	}
	// The dynamic value decides: an interface field holding a slice makes
	// an otherwise comparable struct unhashable.
	if !reflect.ValueOf(r).Comparable() {
		return nil, fmt.Errorf("%w: %T is not comparable", ErrInvalidTask, r)
	}
	return r, nil
}

// nameOf returns a display name for r.
func nameOf(r Runner) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	if f, ok := r.(Func); ok {
		if fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return fmt.Sprintf("%T", r)
}

// task is one registry entry. Only the Registry holds pointers to it.
type task struct {
	runner   Runner
	name     string
	interval int64 // ms, > 0
	enabled  bool
	lastFire int64 // tick of last firing, 0 until the first
	lastCost int64 // ms spent in the last Run
	drift    int64 // clamped overrun of the last firing
	fires    uint64
}

// due reports whether t should fire at now.
func (t *task) due(now int64) bool {
	if !t.enabled {
		return false
	}
	elapsed := now - t.lastFire
	if t.fires > 0 && elapsed <= 0 {
		return false
	}
	return elapsed+t.drift >= t.interval
}

// deadline returns the tick at which t next becomes due.
func (t *task) deadline() int64 {
	d := t.lastFire + t.interval - t.drift
	if t.fires > 0 && d <= t.lastFire {
		d = t.lastFire + 1
	}
	return d
}

// TaskInfo is a point-in-time copy of a task's state.
type TaskInfo struct {
	Name     string
	Position int // sequence index; priority rank when priority mode is on
	Interval int64
	Enabled  bool
	LastFire int64
	LastCost int64
	Drift    int64
	Fires    uint64
}

func (t *task) info(pos int) TaskInfo {
	return TaskInfo{
		Name:     t.name,
		Position: pos,
		Interval: t.interval,
		Enabled:  t.enabled,
		LastFire: t.lastFire,
		LastCost: t.lastCost,
		Drift:    t.drift,
		Fires:    t.fires,
	}
}

// Handle refers to a registered task by identity. It never dangles: after the
// task is removed every accessor reports zero values and Valid returns false.
type Handle struct {
	reg *Registry
	key any
}

func (h Handle) lookup() *task {
	if h.reg == nil {
		return nil
	}
	return h.reg.get(h.key)
}

// Valid reports whether the task is still registered.
func (h Handle) Valid() bool { return h.lookup() != nil }

// Info returns a snapshot of the task.
func (h Handle) Info() (TaskInfo, bool) {
	t := h.lookup()
	if t == nil {
		return TaskInfo{}, false
	}
	return t.info(h.reg.position(h.key)), true
}

// Name returns the task's display name.
func (h Handle) Name() string {
	if t := h.lookup(); t != nil {
		return t.name
	}
	return ""
}

// Interval returns the configured period in ms.
func (h Handle) Interval() int64 {
	if t := h.lookup(); t != nil {
		return t.interval
	}
	return 0
}

// Enabled reports whether the dispatcher considers the task.
func (h Handle) Enabled() bool {
	if t := h.lookup(); t != nil {
		return t.enabled
	}
	return false
}

// LastFire returns the tick of the most recent firing.
func (h Handle) LastFire() int64 {
	if t := h.lookup(); t != nil {
		return t.lastFire
	}
	return 0
}

// LastCost returns the duration of the most recent Run in ms.
func (h Handle) LastCost() int64 {
	if t := h.lookup(); t != nil {
		return t.lastCost
	}
	return 0
}

// Drift returns the compensation carried into the next deadline.
func (h Handle) Drift() int64 {
	if t := h.lookup(); t != nil {
		return t.drift
	}
	return 0
}

// Fires returns how many times the task has run.
func (h Handle) Fires() uint64 {
	if t := h.lookup(); t != nil {
		return t.fires
	}
	return 0
}

// Since returns the ticks elapsed between the last firing and now.
func (h Handle) Since(now int64) int64 {
	if t := h.lookup(); t != nil {
		return now - t.lastFire
	}
	return 0
}
