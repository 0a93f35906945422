// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond counter.
type Clock interface {
	Millis() int64
}

// monoClock counts milliseconds since it was created.
type monoClock struct{ start time.Time }

func newMonoClock() monoClock { return monoClock{start: time.Now()} }

func (c monoClock) Millis() int64 { return time.Since(c.start).Milliseconds() }

// TickClock emits ticks and counts them atomically.
type TickClock struct {
	Ch     chan struct{}
	period time.Duration
	count  atomic.Int64
	stop   chan struct{}
	once   sync.Once
}

// NewTickClock creates a clock whose ticks are period apart. Periods below
// one millisecond are raised to one millisecond.
func NewTickClock(period time.Duration, buffer int) *TickClock {
	if period < time.Millisecond {
		period = time.Millisecond
	}
	return &TickClock{
		Ch:     make(chan struct{}, buffer),
		period: period,
		stop:   make(chan struct{}),
	}
}

// Start begins emitting ticks. If the consumer falls behind, notifications
// are dropped but the count keeps advancing.
func (c *TickClock) Start() {
	ticker := time.NewTicker(c.period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. It is safe to call more
// than once.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Millis converts the tick count to milliseconds.
func (c *TickClock) Millis() int64 {
	return c.count.Load() * c.period.Milliseconds()
}
