package stress

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionErrors_Message(t *testing.T) {
	err := &ExecutionErrors{Failures: []FailureRecord{
		{Instance: 1, Err: &PhaseError{Step: StepSetup, Instance: 1, Err: errors.New("refused")}},
		{Instance: 3, Err: errors.New("plain")},
	}}

	assert.Equal(t,
		"some instances failed to execute (2):\n  instance #1: setup failed: refused\n  instance #3: plain",
		err.Error())
	assert.Equal(t, []int{1, 3}, err.Instances())
}

func TestExecutionErrors_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("case: %w", &ExecutionErrors{Failures: []FailureRecord{
		{Instance: 0, Err: &PhaseError{Step: StepScenario, Instance: 0, Err: sentinel}},
	}})

	assert.ErrorIs(t, err, sentinel)

	var pe *PhaseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, StepScenario, pe.Step)
}

func TestConfigErrors(t *testing.T) {
	errs := &ConfigErrors{}
	assert.NoError(t, errs.Err())

	errs.Add("repeat", "cannot be negative")
	assert.Equal(t, "configuration error on field 'repeat': cannot be negative", errs.Error())

	errs.Add("", "no tests")
	assert.Contains(t, errs.Error(), "2 configuration errors")
	assert.ErrorIs(t, errs.Err(), ErrConfiguration)
	assert.ErrorIs(t, errs.Errors[1], ErrConfiguration)
}

func TestSortFailures(t *testing.T) {
	records := []FailureRecord{{Instance: 4}, {Instance: 0}, {Instance: 2}}
	SortFailures(records)
	assert.Equal(t, []int{0, 2, 4}, []int{records[0].Instance, records[1].Instance, records[2].Instance})
}

func TestReportWriterError(t *testing.T) {
	cause := errors.New("disk full")
	err := &ReportWriterError{Writer: "html", Err: cause}
	assert.Equal(t, "report writer html failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
