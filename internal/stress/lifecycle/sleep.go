package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/wesleyorama2/strest/internal/stress"
)

// ErrInjected is the failure returned by a sleep lifecycle for the instances
// listed in SleepOptions.FailInstances.
var ErrInjected = errors.New("injected failure")

// SleepOptions configures the synthetic sleep lifecycle.
type SleepOptions struct {
	Setup    time.Duration
	Scenario time.Duration
	Teardown time.Duration

	// Jitter adds a random duration in [0, Jitter) to every sleep.
	Jitter time.Duration

	// FailInstances lists the instance indices that fail at FailStep.
	FailInstances []int

	// FailStep is the hook that fails. Defaults to StepScenario.
	FailStep stress.Step
}

// Validate checks the options.
func (o SleepOptions) Validate() error {
	if o.Setup < 0 || o.Scenario < 0 || o.Teardown < 0 || o.Jitter < 0 {
		return errors.New("sleep durations cannot be negative")
	}
	if o.FailStep != "" && !slices.Contains(stress.Steps, o.FailStep) {
		return fmt.Errorf("unknown failStep %q", o.FailStep)
	}
	return nil
}

// Sleep returns a factory whose hooks sleep for the configured durations and
// report what they measured.
func Sleep(opts SleepOptions) (stress.Factory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	failStep := opts.FailStep
	if failStep == "" {
		failStep = stress.StepScenario
	}

	return func(index int) *stress.Hooks {
		failing := slices.Contains(opts.FailInstances, index)
		fail := func(step stress.Step) error {
			if failing && step == failStep {
				return ErrInjected
			}
			return nil
		}
		measure := func(ctx context.Context, t *stress.Timer, step stress.Step, d time.Duration) (any, error) {
			t.Start()
			err := sleep(ctx, d+jitter(opts.Jitter))
			t.Stop()
			if err != nil {
				return nil, err
			}
			if err := fail(step); err != nil {
				return nil, err
			}
			return t.Elapsed()
		}

		return &stress.Hooks{
			Setup: func(ctx context.Context, t *stress.Timer) (any, error) {
				return measure(ctx, t, stress.StepSetup, opts.Setup)
			},
			SetupReport: func(_ context.Context, r *stress.Reporter, setup *stress.PhaseResult) error {
				return phaseNote(r, "setup finished", setup, fail(stress.StepSetupReport))
			},
			Scenario: func(ctx context.Context, t *stress.Timer, _ *stress.PhaseResult) (any, error) {
				return measure(ctx, t, stress.StepScenario, opts.Scenario)
			},
			ScenarioReport: func(_ context.Context, r *stress.Reporter, scenario *stress.PhaseResult) error {
				return phaseNote(r, "scenario finished", scenario, fail(stress.StepScenarioReport))
			},
			Teardown: func(ctx context.Context, t *stress.Timer, _, _ *stress.PhaseResult) (any, error) {
				return measure(ctx, t, stress.StepTeardown, opts.Teardown)
			},
			TeardownReport: func(_ context.Context, r *stress.Reporter, _, _, teardown *stress.PhaseResult) error {
				return phaseNote(r, "teardown finished", teardown, fail(stress.StepTeardownReport))
			},
		}
	}, nil
}

func phaseNote(r *stress.Reporter, message string, res *stress.PhaseResult, failure error) error {
	elapsed, err := res.ExecutionTime()
	if err != nil {
		r.Warning(message+" without a measurement", map[string]any{"error": err.Error()})
	} else {
		r.Note(message, map[string]any{"executionTime": elapsed.String()})
	}
	return failure
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
