package sched

// probe is a Runner with a stable pointer identity.
type probe struct {
	name  string
	runs  int
	onRun func()
}

func (p *probe) Name() string { return p.name }

func (p *probe) Run() {
	p.runs++
	if p.onRun != nil {
		p.onRun()
	}
}

func newProbe(name string) *probe { return &probe{name: name} }

type fakeClock struct{ ms int64 }

func (c *fakeClock) Millis() int64 { return c.ms }

// sliceRunner is not comparable and cannot be registered.
type sliceRunner []int

func (sliceRunner) Run() {}

// boxRunner has a comparable type, but a slice in v makes the value
// unhashable.
type boxRunner struct{ v any }

func (boxRunner) Run() {}

func names(r *Registry) []string {
	var out []string
	for _, ti := range r.Snapshot() {
		out = append(out, ti.Name)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
