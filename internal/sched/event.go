// internal/sched/event.go

package sched

// EventKind represents the type of registry event
type EventKind int

const (
	EventRegister EventKind = iota
	EventUpdate
	EventLogout
	EventFire
	EventTeardown
)

// Event is emitted on every registry mutation and every firing.
// Tick is the dispatch tick for EventFire and zero otherwise.
type Event struct {
	Tick     int64
	Kind     EventKind
	Name     string
	Interval int64
	Elapsed  int64
	Drift    int64
	Cost     int64
}

// Overrun returns how late a firing was relative to its interval.
func (ev Event) Overrun() int64 {
	if ev.Kind != EventFire {
		return 0
	}
	return ev.Elapsed - ev.Interval
}

func (k EventKind) String() string {
	switch k {
	case EventRegister:
		return "Register"
	case EventUpdate:
		return "Update"
	case EventLogout:
		return "Logout"
	case EventFire:
		return "Fire"
	case EventTeardown:
		return "Teardown"
	default:
		return "Unknown"
	}
}
