// internal/sched/dispatch.go

package sched

// Run fires every enabled task that is due at now and returns how many fired.
//
// Tasks are visited in sequence order and each body runs to completion before
// the next task is examined. A task is due when
//
//	(now - lastFire) + drift >= interval
//
// After firing, drift is set to the overrun (now - lastFire - interval)
// clamped to one interval either way, so a late firing pulls the next
// deadline in by at most one period. A task never fires twice for the same
// tick.
//
// A body that logs out its own task is not counted and emits no EventFire.
// Bodies may register or log out tasks during the pass: the pass walks the
// keys present when it started and skips any that are gone by the time they
// are reached. Tasks added during the pass are first considered by the next
// Run.
func (r *Registry) Run(now int64) int {
	fired := 0
	keys := r.tasks.Keys()
	for _, key := range keys {
		t := r.get(key)
		if t == nil || !t.due(now) {
			continue
		}
		if r.fire(key, t, now) {
			fired++
		}
	}
	return fired
}

// fire runs t and records the firing. It reports false when the body removed
// its own task, in which case nothing is recorded.
func (r *Registry) fire(key any, t *task, now int64) bool {
	elapsed := now - t.lastFire

	start := r.clock.Millis()
	t.runner.Run()
	cost := r.clock.Millis() - start
	if r.get(key) != t {
		return false
	}

	t.lastCost = cost
	t.drift = clamp(elapsed-t.interval, -t.interval, t.interval)
	t.lastFire = now
	t.fires++

	r.log.Trace().
		Str("task", t.name).
		Int64("tick", now).
		Int64("elapsed_ms", elapsed).
		Int64("drift_ms", t.drift).
		Int64("cost_ms", cost).
		Msg("task fired")
	r.emit(Event{
		Tick:     now,
		Kind:     EventFire,
		Name:     t.name,
		Interval: t.interval,
		Elapsed:  elapsed,
		Drift:    t.drift,
		Cost:     cost,
	})
	return true
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
