package stress

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConfiguration matches every configuration error via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrPhaseNotRun is returned by PhaseResult.ExecutionTime on a phase that was
// never reached.
var ErrPhaseNotRun = errors.New("phase did not run")

// ConfigError describes a single configuration problem.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// ConfigErrors collects every configuration problem found in one pass.
type ConfigErrors struct {
	Errors []*ConfigError
}

func (e *ConfigErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no configuration errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d configuration errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigErrors) Is(target error) bool { return target == ErrConfiguration }

// Add adds a problem to the collection.
func (e *ConfigErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ConfigError{Field: field, Message: message})
}

// HasErrors returns true if any problem was recorded.
func (e *ConfigErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Err returns the collection as an error, or nil when it is empty.
func (e *ConfigErrors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// PhaseError is a failure raised by one lifecycle hook of one instance.
type PhaseError struct {
	Step     Step
	Instance int
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("instance #%d: %s failed: %v", e.Instance, e.Step, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking hook.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// FailureRecord is one failed instance of a directive or of the teardown drain.
type FailureRecord struct {
	Instance int
	Err      error
}

// ExecutionErrors is the composite failure of a run directive whose instances
// failed while stop-on-error was off. It is raised only after every instance
// of the directive had its chance to run.
type ExecutionErrors struct {
	Failures []FailureRecord
}

func (e *ExecutionErrors) Error() string {
	return formatFailures("some instances failed to execute", e.Failures)
}

// Unwrap exposes every underlying instance error to errors.Is/As.
func (e *ExecutionErrors) Unwrap() []error { return unwrapFailures(e.Failures) }

// Instances returns the failing instance indices in ascending order.
func (e *ExecutionErrors) Instances() []int { return failureIndices(e.Failures) }

// TeardownErrors collects failures raised while draining deferred teardowns.
type TeardownErrors struct {
	Failures []FailureRecord
}

func (e *TeardownErrors) Error() string {
	return formatFailures("some teardowns failed", e.Failures)
}

// Unwrap exposes every underlying teardown error to errors.Is/As.
func (e *TeardownErrors) Unwrap() []error { return unwrapFailures(e.Failures) }

// Instances returns the failing instance indices in ascending order.
func (e *TeardownErrors) Instances() []int { return failureIndices(e.Failures) }

// ReportWriterError wraps a failure raised by a report writer.
type ReportWriterError struct {
	Writer string
	Err    error
}

func (e *ReportWriterError) Error() string {
	return fmt.Sprintf("report writer %s failed: %v", e.Writer, e.Err)
}

func (e *ReportWriterError) Unwrap() error { return e.Err }

// SortFailures orders records by instance index.
func SortFailures(records []FailureRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Instance < records[j].Instance
	})
}

func formatFailures(message string, records []FailureRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d):", message, len(records)))
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("\n  instance #%d: %v", r.Instance, causeOf(r.Err)))
	}
	return sb.String()
}

// causeOf strips the PhaseError prefix so the instance is not printed twice.
func causeOf(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s failed: %v", pe.Step, pe.Err)
	}
	return fmt.Sprint(err)
}

func unwrapFailures(records []FailureRecord) []error {
	errs := make([]error, 0, len(records))
	for _, r := range records {
		errs = append(errs, r.Err)
	}
	return errs
}

func failureIndices(records []FailureRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Instance
	}
	sort.Ints(out)
	return out
}
