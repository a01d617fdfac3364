package stress

import (
	"fmt"
	"strings"
	"time"
)

// DirectiveKind identifies what a Directive does.
type DirectiveKind int

const (
	// DirectiveRun starts a batch of instances.
	DirectiveRun DirectiveKind = iota
	// DirectiveWait pauses the sequence.
	DirectiveWait
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveRun:
		return "run"
	case DirectiveWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Directive is one schedulable unit of load: either "run N instances,
// serially or in parallel" or "wait for a fixed duration".
//
// Directives are values; once constructed they never change.
type Directive struct {
	kind     DirectiveKind
	count    int
	parallel bool
	wait     time.Duration
}

// RunInstances returns a directive that runs count instances one after another.
func RunInstances(count int) Directive {
	return Directive{kind: DirectiveRun, count: count}
}

// RunParallel returns a directive that starts count instances together.
func RunParallel(count int) Directive {
	return Directive{kind: DirectiveRun, count: count, parallel: true}
}

// Run returns a run directive with an explicit concurrency mode.
func Run(count int, parallel bool) Directive {
	return Directive{kind: DirectiveRun, count: count, parallel: parallel}
}

// WaitFor returns a directive that pauses for d.
func WaitFor(d time.Duration) Directive {
	return Directive{kind: DirectiveWait, wait: d}
}

// WaitMillis returns a directive that pauses for ms milliseconds.
func WaitMillis(ms int) Directive {
	return WaitFor(time.Duration(ms) * time.Millisecond)
}

// Kind returns the directive kind.
func (d Directive) Kind() DirectiveKind { return d.kind }

// Count returns the number of instances of a run directive.
func (d Directive) Count() int { return d.count }

// Parallel reports whether a run directive starts its instances together.
func (d Directive) Parallel() bool { return d.parallel }

// Duration returns the pause of a wait directive.
func (d Directive) Duration() time.Duration { return d.wait }

// String renders the directive as I(n) or W(<ms>ms).
func (d Directive) String() string {
	switch d.kind {
	case DirectiveRun:
		return fmt.Sprintf("I(%d)", d.count)
	case DirectiveWait:
		return fmt.Sprintf("W(%dms)", d.wait.Milliseconds())
	default:
		return "?"
	}
}

// Validate checks the directive invariants.
func (d Directive) Validate() error {
	switch d.kind {
	case DirectiveRun:
		if d.count < 1 {
			return fmt.Errorf("instance count must be at least 1, got %d", d.count)
		}
	case DirectiveWait:
		if d.wait < 0 {
			return fmt.Errorf("wait duration cannot be negative, got %s", d.wait)
		}
	default:
		return fmt.Errorf("unknown directive kind %d", d.kind)
	}
	return nil
}

// Sequence is an ordered list of directives forming one load pattern.
// Order is execution order and is never changed.
type Sequence struct {
	items []Directive
	label string
}

// NewSequence builds a sequence from directives in execution order.
func NewSequence(directives ...Directive) Sequence {
	items := make([]Directive, len(directives))
	copy(items, directives)

	parts := make([]string, len(items))
	for i, d := range items {
		parts[i] = d.String()
	}

	return Sequence{items: items, label: strings.Join(parts, ", ")}
}

// Directives returns a copy of the directives in execution order.
func (s Sequence) Directives() []Directive {
	out := make([]Directive, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of directives.
func (s Sequence) Len() int { return len(s.items) }

// Label returns the human-readable rendering, e.g. "I(2), W(500ms), I(1)".
func (s Sequence) Label() string { return s.label }

// TotalInstances returns how many instances the sequence launches.
func (s Sequence) TotalInstances() int {
	total := 0
	for _, d := range s.items {
		if d.kind == DirectiveRun {
			total += d.count
		}
	}
	return total
}
