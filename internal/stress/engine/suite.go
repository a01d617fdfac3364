// Package engine turns a stress test spec into host test cases.
//
// Every (sequence, repetition) pair becomes one independently reported case.
// A case folds its directives through the executor, then drains the deferred
// teardowns of every instance it started. After all cases of a spec finished,
// the suite's report store is handed to the configured report writers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/executor"
)

// CaseFunc is the body of one registered test case.
type CaseFunc func(ctx context.Context) error

// Host registers and executes named test cases.
type Host interface {
	// Case registers a test case. The host decides when it runs and which
	// context (deadline included) it receives.
	Case(title string, fn CaseFunc)

	// AfterAll registers a hook that runs once every case registered so far
	// has finished, whatever its outcome.
	AfterAll(fn func(ctx context.Context))
}

// ReportWriter persists the reports of one spec.
type ReportWriter interface {
	Name() string
	WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error
}

// CaseObserver is notified when a case finishes.
type CaseObserver interface {
	ObserveCase(spec, title string, d time.Duration, err error)
}

// Suite binds a spec to the lifecycle that implements it.
type Suite struct {
	// Spec declares the load patterns.
	Spec *stress.Spec

	// Factory builds the hooks of every instance.
	Factory stress.Factory

	// Writers receive the report store after all cases finished.
	Writers []ReportWriter

	// ReportDir is handed to every writer.
	ReportDir string

	// TeardownTimeout bounds the teardown drain of a case. Zero means no
	// bound. The drain never inherits the case deadline.
	TeardownTimeout time.Duration

	Logger    *zap.Logger
	Observer  stress.Observer
	Instances executor.InstanceObserver
	Cases     CaseObserver
	Clock     stress.Clock

	storeOnce sync.Once
	store     *stress.Store
}

// Store returns the report store shared by every case of the suite.
func (s *Suite) Store() *stress.Store {
	s.storeOnce.Do(func() {
		s.store = stress.NewStoreWithClock(s.Clock)
	})
	return s.store
}

// Register validates the Spec and registers one case per sequence and
// repetition, followed by the report finalizer. Nothing is registered when
// validation fails.
func (s *Suite) Register(host Host) error {
	if s.Spec == nil {
		return &stress.ConfigError{Message: "suite has no spec"}
	}
	if err := s.Spec.Validate(); err != nil {
		return fmt.Errorf("stress test %q: %w", s.Spec.Name, err)
	}
	if s.Factory == nil {
		return &stress.ConfigError{Field: "lifecycle", Message: fmt.Sprintf("stress test %q has no lifecycle", s.Spec.Name)}
	}

	for _, seq := range s.Spec.Sequences {
		for rep := 1; rep <= s.Spec.Repetitions(); rep++ {
			title := s.Spec.CaseTitle(rep, seq)
			host.Case(title, func(ctx context.Context) error {
				return s.RunCase(ctx, title, seq)
			})
		}
	}

	host.AfterAll(s.finalize)
	return nil
}

// Register registers several suites on one host, stopping at the first
// invalid one.
func Register(host Host, suites ...*Suite) error {
	for _, s := range suites {
		if err := s.Register(host); err != nil {
			return err
		}
	}
	return nil
}

// RunCase executes one sequence with a fresh instance counter and teardown
// list. The returned error combines the directive chain failure with any
// teardown failures.
func (s *Suite) RunCase(ctx context.Context, title string, seq stress.Sequence) error {
	runID := uuid.New().String()
	log := s.logger().With(
		zap.String("spec", s.Spec.Name),
		zap.String("case", title),
		zap.String("run_id", runID),
	)
	store := s.Store()
	store.Init().Note("case started", map[string]any{"case": title, "run_id": runID})
	log.Info("executing case", zap.String("sequence", seq.Label()), zap.Bool("stop_on_error", s.Spec.StopOnError))

	start := time.Now()

	coord := &executor.Coordinator{
		Factory:     s.Factory,
		Store:       store,
		StopOnError: s.Spec.StopOnError,
		Logger:      log,
		Observer:    s.Observer,
		Instances:   s.Instances,
		Clock:       s.Clock,
	}

	teardowns, primary := s.fold(ctx, coord, seq, log)

	log.Info("flow execution is done, running teardown methods", zap.Int("teardowns", len(teardowns)))
	teardownErr := s.drain(ctx, teardowns)
	if teardownErr != nil {
		log.Error("teardown failed", zap.Error(teardownErr))
	}

	err := multierr.Combine(primary, teardownErr)
	elapsed := time.Since(start)

	details := map[string]any{"case": title, "run_id": runID, "elapsed_ms": elapsed.Milliseconds()}
	if err != nil {
		details["error"] = err.Error()
		store.Init().Error("case failed", details)
		log.Error("case failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		store.Init().Note("case finished", details)
		log.Info("case finished", zap.Duration("elapsed", elapsed))
	}

	if s.Cases != nil {
		s.Cases.ObserveCase(s.Spec.Name, title, elapsed, err)
	}
	return err
}

// fold executes the directives left to right. With stop-on-error off an
// aggregated failure is kept and the next directive still runs; every other
// failure ends the chain.
func (s *Suite) fold(ctx context.Context, coord *executor.Coordinator, seq stress.Sequence, log *zap.Logger) ([]stress.Teardown, error) {
	var (
		teardowns []stress.Teardown
		failures  []stress.FailureRecord
		next      int
	)

	for i, d := range seq.Directives() {
		out, err := coord.Execute(ctx, d, next)
		next = out.Next
		teardowns = append(teardowns, out.Teardowns...)
		if err == nil {
			continue
		}

		// Instance failures are merged into one composite; anything else
		// (a cancelled ctx, a stop-on-error failure) ends the chain.
		var rest []error
		for _, e := range multierr.Errors(err) {
			if execErr, ok := e.(*stress.ExecutionErrors); ok {
				failures = append(failures, execErr.Failures...)
				continue
			}
			rest = append(rest, e)
		}
		if len(rest) == 0 && !s.Spec.StopOnError {
			continue
		}

		cause := multierr.Combine(rest...)
		log.Error("directive failed", zap.Int("directive", i), zap.Stringer("kind", d.Kind()), zap.Error(cause))
		return teardowns, multierr.Append(aggregate(failures), cause)
	}

	return teardowns, aggregate(failures)
}

// drain runs every teardown concurrently and waits for all of them.
func (s *Suite) drain(ctx context.Context, teardowns []stress.Teardown) error {
	if len(teardowns) == 0 {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	if s.TeardownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.TeardownTimeout)
		defer cancel()
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []stress.FailureRecord
	)

	for i, td := range teardowns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := td(ctx); err != nil {
				index := i
				var pe *stress.PhaseError
				if errors.As(err, &pe) {
					index = pe.Instance
				}
				mu.Lock()
				failures = append(failures, stress.FailureRecord{Instance: index, Err: err})
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(failures) == 0 {
		return nil
	}
	stress.SortFailures(failures)
	return &stress.TeardownErrors{Failures: failures}
}

// finalize hands the store to every writer. Writer failures are logged and
// never returned.
func (s *Suite) finalize(ctx context.Context) {
	log := s.logger().With(zap.String("spec", s.Spec.Name))

	for _, w := range s.Writers {
		if err := w.WriteReport(ctx, s.Spec.Name, s.Spec.Description, s.Store(), s.ReportDir); err != nil {
			werr := &stress.ReportWriterError{Writer: w.Name(), Err: err}
			log.Error("failed to write report", zap.String("writer", w.Name()), zap.Error(werr))
			continue
		}
		log.Info("report written", zap.String("writer", w.Name()), zap.String("dir", s.ReportDir))
	}
}

func (s *Suite) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func aggregate(failures []stress.FailureRecord) error {
	if len(failures) == 0 {
		return nil
	}
	stress.SortFailures(failures)
	return &stress.ExecutionErrors{Failures: failures}
}
