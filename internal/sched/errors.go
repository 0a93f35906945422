package sched

import "errors"

var (
	// ErrInvalidInterval is returned when a task is registered with a
	// non-positive interval.
	ErrInvalidInterval = errors.New("sched: interval must be positive")
	// ErrOutOfMemory is returned when the registry's task pool is exhausted.
	ErrOutOfMemory = errors.New("sched: task pool exhausted")
	// ErrInvalidTask is returned for nil or non-comparable runners.
	ErrInvalidTask = errors.New("sched: invalid task")
)
