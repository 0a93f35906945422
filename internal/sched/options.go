package sched

import "github.com/rs/zerolog"

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity bounds the number of tasks the registry can hold. Registering a
// new task beyond the bound fails with ErrOutOfMemory. n <= 0 means unbounded.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n < 0 {
			n = 0
		}
		r.capacity = n
	}
}

// WithClock sets the clock used to measure task cost. Dispatch decisions only
// ever use the tick passed to Run.
func WithClock(c Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger for registry mutations (debug) and firings (trace).
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithObserver installs a callback that receives every Event synchronously,
// from inside the mutating call or Run.
func WithObserver(fn func(Event)) Option {
	return func(r *Registry) { r.observer = fn }
}
