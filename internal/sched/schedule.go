// internal/sched/schedule.go

package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// Upcoming is one enabled task and the tick at which it next becomes due.
type Upcoming struct {
	Name     string
	Position int
	Due      int64
	Interval int64
}

// NextDue returns the earliest tick at or after now at which some enabled
// task is due. ok is false when no task is enabled.
//
// A host that sleeps between ticks can use it to skip Run calls that would
// fire nothing. The answer is only valid until the registry is next mutated.
func (r *Registry) NextDue(now int64) (tick int64, ok bool) {
	it := r.tasks.Iterator()
	for it.Next() {
		t := it.Value().(*task)
		if !t.enabled {
			continue
		}
		d := t.deadline()
		if !ok || d < tick {
			tick, ok = d, true
		}
	}
	if ok && tick < now {
		tick = now
	}
	return tick, ok
}

// Upcoming lists the enabled tasks ordered by their next deadline, ties broken
// by sequence position. Deadlines already passed are reported as now.
func (r *Registry) Upcoming(now int64) []Upcoming {
	tree := redblacktree.NewWith(cmp)
	pos := 0
	it := r.tasks.Iterator()
	for it.Next() {
		t := it.Value().(*task)
		if t.enabled {
			d := t.deadline()
			if d < now {
				d = now
			}
			tree.Put(nodeKey{due: d, pos: pos}, Upcoming{
				Name:     t.name,
				Position: pos,
				Due:      d,
				Interval: t.interval,
			})
		}
		pos++
	}

	out := make([]Upcoming, 0, tree.Size())
	for _, v := range tree.Values() {
		out = append(out, v.(Upcoming))
	}
	return out
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	due int64
	pos int
}

// cmp orders nodeKeys by deadline, then by sequence position.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.due < kb.due:
		return -1
	case ka.due > kb.due:
		return 1
	case ka.pos < kb.pos:
		return -1
	case ka.pos > kb.pos:
		return 1
	default:
		return 0
	}
}
