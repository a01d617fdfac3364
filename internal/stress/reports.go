package stress

import (
	"sync"
	"time"
)

// ReportKind classifies a report.
type ReportKind string

const (
	KindNote    ReportKind = "NOTE"
	KindWarning ReportKind = "WARNING"
	KindError   ReportKind = "ERROR"
)

// Phase identifies which part of the lifecycle produced a report.
type Phase string

const (
	PhaseInit     Phase = "INIT"
	PhaseSetup    Phase = "SETUP"
	PhaseScenario Phase = "SCENARIO"
	PhaseTeardown Phase = "TEARDOWN"
)

// Phases lists every phase in canonical order.
var Phases = []Phase{PhaseInit, PhaseSetup, PhaseScenario, PhaseTeardown}

// Report is a single structured entry recorded during a run.
type Report struct {
	Message   string     `json:"message" msgpack:"message"`
	Data      any        `json:"data,omitempty" msgpack:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp" msgpack:"timestamp"`
	Kind      ReportKind `json:"type" msgpack:"type"`
	Phase     Phase      `json:"phase" msgpack:"phase"`
	Instance  *int       `json:"instance,omitempty" msgpack:"instance,omitempty"`
}

// Scope attributes a report to a phase and, optionally, an instance.
// Every append carries its own scope so concurrent instances never race on
// shared "current phase" state.
type Scope struct {
	Phase    Phase
	Instance *int
}

// InstanceScope returns the scope of the given instance in the given phase.
func InstanceScope(phase Phase, index int) Scope {
	return Scope{Phase: phase, Instance: &index}
}

// Store is the report log of one stress test spec execution. It is shared by
// every instance of every case of that spec and is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	clock   Clock
	byPhase map[Phase][]Report
}

// NewStore creates an empty store.
func NewStore() *Store {
	return NewStoreWithClock(nil)
}

// NewStoreWithClock creates an empty store that stamps reports with clock.
func NewStoreWithClock(clock Clock) *Store {
	if clock == nil {
		clock = RealClock{}
	}
	byPhase := make(map[Phase][]Report, len(Phases))
	for _, p := range Phases {
		byPhase[p] = nil
	}
	return &Store{clock: clock, byPhase: byPhase}
}

// Note records an informational report.
func (s *Store) Note(scope Scope, message string, data any) {
	s.append(scope, KindNote, message, data)
}

// Warning records a warning report.
func (s *Store) Warning(scope Scope, message string, data any) {
	s.append(scope, KindWarning, message, data)
}

// Error records an error report.
func (s *Store) Error(scope Scope, message string, data any) {
	s.append(scope, KindError, message, data)
}

func (s *Store) append(scope Scope, kind ReportKind, message string, data any) {
	r := Report{
		Message:   message,
		Data:      data,
		Timestamp: s.clock.Now(),
		Kind:      kind,
		Phase:     scope.Phase,
	}
	if scope.Instance != nil {
		idx := *scope.Instance
		r.Instance = &idx
	}

	s.mu.Lock()
	s.byPhase[scope.Phase] = append(s.byPhase[scope.Phase], r)
	s.mu.Unlock()
}

// Reports returns a copy of the reports recorded for phase, in append order.
func (s *Store) Reports(phase Phase) []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.byPhase[phase]
	out := make([]Report, len(src))
	copy(out, src)
	return out
}

// All returns a copy of every phase's reports.
func (s *Store) All() map[Phase][]Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Phase][]Report, len(s.byPhase))
	for p, reports := range s.byPhase {
		cp := make([]Report, len(reports))
		copy(cp, reports)
		out[p] = cp
	}
	return out
}

// Len returns the total number of reports.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, reports := range s.byPhase {
		n += len(reports)
	}
	return n
}

// Counts returns the number of reports per kind.
func (s *Store) Counts() map[ReportKind]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[ReportKind]int{KindNote: 0, KindWarning: 0, KindError: 0}
	for _, reports := range s.byPhase {
		for _, r := range reports {
			counts[r.Kind]++
		}
	}
	return counts
}

// Scoped returns a Reporter bound to the given phase and instance.
func (s *Store) Scoped(phase Phase, index int) *Reporter {
	return &Reporter{store: s, scope: InstanceScope(phase, index)}
}

// Init returns a Reporter for engine-level INIT reports with no instance.
func (s *Store) Init() *Reporter {
	return &Reporter{store: s, scope: Scope{Phase: PhaseInit}}
}

// Reporter records reports into a Store under a fixed scope. Report hooks
// receive one bound to their own phase and instance.
type Reporter struct {
	store *Store
	scope Scope
}

// Note records an informational report.
func (r *Reporter) Note(message string, data any) { r.store.Note(r.scope, message, data) }

// Warning records a warning report.
func (r *Reporter) Warning(message string, data any) { r.store.Warning(r.scope, message, data) }

// Error records an error report.
func (r *Reporter) Error(message string, data any) { r.store.Error(r.scope, message, data) }

// Phase returns the phase reports are attributed to.
func (r *Reporter) Phase() Phase { return r.scope.Phase }

// Instance returns the instance index reports are attributed to, and false
// for engine-level reporters.
func (r *Reporter) Instance() (int, bool) {
	if r.scope.Instance == nil {
		return 0, false
	}
	return *r.scope.Instance, true
}

// Store returns the underlying store.
func (r *Reporter) Store() *Store { return r.store }
