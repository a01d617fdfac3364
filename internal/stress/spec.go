package stress

import "fmt"

// Spec is a stress test declaration: the load patterns to run, how many times
// to repeat each, and whether the first instance failure aborts the work.
type Spec struct {
	// Name identifies the test in case titles and reports.
	Name string

	// Description is free text handed to report writers.
	Description string

	// Sequences are the load patterns; each one becomes Repeat test cases.
	Sequences []Sequence

	// Repeat is how many times each sequence runs. Zero means once.
	Repeat int

	// StopOnError aborts the current directive on the first instance failure
	// instead of recording it and carrying on.
	StopOnError bool
}

// Repetitions returns the effective repeat count.
func (s *Spec) Repetitions() int {
	if s.Repeat <= 0 {
		return 1
	}
	return s.Repeat
}

// Validate checks s before any case is registered.
func (s *Spec) Validate() error {
	errs := &ConfigErrors{}

	if len(s.Sequences) == 0 {
		errs.Add("instances", "at least one directive sequence is required")
	}

	for i, seq := range s.Sequences {
		prefix := fmt.Sprintf("instances[%d]", i)
		if seq.Len() == 0 {
			errs.Add(prefix, "sequence has no directives")
			continue
		}
		for j, d := range seq.Directives() {
			if err := d.Validate(); err != nil {
				errs.Add(fmt.Sprintf("%s[%d]", prefix, j), err.Error())
			}
		}
	}

	if s.Repeat < 0 {
		errs.Add("repeat", fmt.Sprintf("repeat cannot be negative, got %d", s.Repeat))
	}

	return errs.Err()
}

// CaseTitle returns the deterministic title of one repetition of a sequence.
func (s *Spec) CaseTitle(repetition int, seq Sequence) string {
	return fmt.Sprintf("[ #%d ][ %s ] - %s", repetition, seq.Label(), s.Name)
}
