package stress

import (
	"context"
	"sync"
	"time"
)

// Step names one of the six lifecycle hooks.
type Step string

const (
	StepInit           Step = "init"
	StepSetup          Step = "setup"
	StepSetupReport    Step = "setupReport"
	StepScenario       Step = "scenario"
	StepScenarioReport Step = "scenarioReport"
	StepTeardown       Step = "teardown"
	StepTeardownReport Step = "teardownReport"
)

// Steps lists the hook steps in execution order.
var Steps = []Step{StepSetup, StepSetupReport, StepScenario, StepScenarioReport, StepTeardown, StepTeardownReport}

// Phase returns the report phase a step belongs to.
func (s Step) Phase() Phase {
	switch s {
	case StepSetup, StepSetupReport:
		return PhaseSetup
	case StepScenario, StepScenarioReport:
		return PhaseScenario
	case StepTeardown, StepTeardownReport:
		return PhaseTeardown
	default:
		return PhaseInit
	}
}

// PhaseResult is what a setup, scenario or teardown hook produced.
type PhaseResult struct {
	// Result is the value returned by the hook.
	Result any

	timer *Timer
}

// ExecutionTime returns the duration measured by the phase timer. It is read
// when called, so hooks that stop their timer late are still measured.
func (r *PhaseResult) ExecutionTime() (time.Duration, error) {
	if r == nil {
		return 0, ErrPhaseNotRun
	}
	return r.timer.Elapsed()
}

// Hooks are the optional lifecycle functions of one instance. A nil field is
// a no-op. Every hook may block; hooks should honor ctx where they can.
type Hooks struct {
	Setup          func(ctx context.Context, t *Timer) (any, error)
	SetupReport    func(ctx context.Context, r *Reporter, setup *PhaseResult) error
	Scenario       func(ctx context.Context, t *Timer, setup *PhaseResult) (any, error)
	ScenarioReport func(ctx context.Context, r *Reporter, scenario *PhaseResult) error
	Teardown       func(ctx context.Context, t *Timer, setup, scenario *PhaseResult) (any, error)
	TeardownReport func(ctx context.Context, r *Reporter, setup, scenario, teardown *PhaseResult) error
}

// Factory builds the hooks of the instance with the given index. It is called
// once per instance, so hooks may keep per-instance state in their closures.
// Returning nil is equivalent to all no-op hooks.
type Factory func(index int) *Hooks

// Observer is notified after every hook invocation with its wall-clock
// duration and outcome.
type Observer interface {
	ObservePhase(step Step, index int, d time.Duration, err error)
}

// Teardown is a deferred teardown handle.
type Teardown func(ctx context.Context) error

// InstanceOptions configures Launch.
type InstanceOptions struct {
	Clock    Clock
	Observer Observer
}

// Instance runs the lifecycle of one logical client.
//
// Run executes setup, setupReport, scenario and scenarioReport strictly in
// order. Teardown executes teardown and teardownReport; it is deferred by the
// caller until the whole batch resolved and must run even when Run failed.
type Instance struct {
	index    int
	hooks    Hooks
	buildErr error
	store    *Store
	clock    Clock
	observer Observer

	setupTimer    *Timer
	scenarioTimer *Timer
	teardownTimer *Timer

	setup    *PhaseResult
	scenario *PhaseResult

	teardownOnce sync.Once
	teardownErr  error
}

// Launch builds the instance with the given index. Nothing runs until Run.
// A panicking factory makes Run fail with a PhaseError for StepInit.
func Launch(index int, factory Factory, store *Store, opts InstanceOptions) *Instance {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}

	in := &Instance{
		index:         index,
		store:         store,
		clock:         clock,
		observer:      opts.Observer,
		setupTimer:    NewTimer(index, clock),
		scenarioTimer: NewTimer(index, clock),
		teardownTimer: NewTimer(index, clock),
	}

	if factory != nil {
		in.buildErr = in.call(StepInit, func() error {
			if h := factory(index); h != nil {
				in.hooks = *h
			}
			return nil
		})
	}

	return in
}

// Index returns the instance index.
func (in *Instance) Index() int { return in.index }

// Run executes the setup and scenario chain. The first failing hook aborts
// the chain and its error is returned as a *PhaseError.
func (in *Instance) Run(ctx context.Context) error {
	if in.buildErr != nil {
		return in.buildErr
	}
	h := in.hooks

	if err := in.callCtx(ctx, StepSetup, func() error {
		if h.Setup == nil {
			in.setup = &PhaseResult{timer: in.setupTimer}
			return nil
		}
		res, err := h.Setup(ctx, in.setupTimer)
		if err != nil {
			return err
		}
		in.setup = &PhaseResult{Result: res, timer: in.setupTimer}
		return nil
	}); err != nil {
		return err
	}

	if h.SetupReport != nil {
		reporter := in.store.Scoped(PhaseSetup, in.index)
		if err := in.call(StepSetupReport, func() error {
			return h.SetupReport(ctx, reporter, in.setup)
		}); err != nil {
			return err
		}
	}

	if err := in.callCtx(ctx, StepScenario, func() error {
		if h.Scenario == nil {
			in.scenario = &PhaseResult{timer: in.scenarioTimer}
			return nil
		}
		res, err := h.Scenario(ctx, in.scenarioTimer, in.setup)
		if err != nil {
			return err
		}
		in.scenario = &PhaseResult{Result: res, timer: in.scenarioTimer}
		return nil
	}); err != nil {
		return err
	}

	if h.ScenarioReport != nil {
		reporter := in.store.Scoped(PhaseScenario, in.index)
		if err := in.call(StepScenarioReport, func() error {
			return h.ScenarioReport(ctx, reporter, in.scenario)
		}); err != nil {
			return err
		}
	}

	return nil
}

// Teardown executes teardown and teardownReport. It receives the setup and
// scenario results that exist; phases never reached are passed as nil.
// Repeated calls return the first outcome without running the hooks again.
func (in *Instance) Teardown(ctx context.Context) error {
	in.teardownOnce.Do(func() {
		in.teardownErr = in.runTeardown(ctx)
	})
	return in.teardownErr
}

func (in *Instance) runTeardown(ctx context.Context) error {
	if in.buildErr != nil {
		return nil
	}
	h := in.hooks

	var result *PhaseResult
	if err := in.call(StepTeardown, func() error {
		if h.Teardown == nil {
			result = &PhaseResult{timer: in.teardownTimer}
			return nil
		}
		res, err := h.Teardown(ctx, in.teardownTimer, in.setup, in.scenario)
		if err != nil {
			return err
		}
		result = &PhaseResult{Result: res, timer: in.teardownTimer}
		return nil
	}); err != nil {
		return err
	}

	if h.TeardownReport != nil {
		reporter := in.store.Scoped(PhaseTeardown, in.index)
		return in.call(StepTeardownReport, func() error {
			return h.TeardownReport(ctx, reporter, in.setup, in.scenario, result)
		})
	}
	return nil
}

// callCtx refuses to start step once ctx is done.
func (in *Instance) callCtx(ctx context.Context, step Step, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &PhaseError{Step: step, Instance: in.index, Err: err}
	}
	return in.call(step, fn)
}

// call runs fn, converting a panic into an error, reporting to the observer
// and wrapping any failure in a PhaseError.
func (in *Instance) call(step Step, fn func() error) (err error) {
	start := in.clock.Now()
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
		if in.observer != nil {
			in.observer.ObservePhase(step, in.index, in.clock.Since(start), err)
		}
		if err != nil {
			err = &PhaseError{Step: step, Instance: in.index, Err: err}
		}
	}()
	return fn()
}
