// Package executor runs a single directive: it launches instances serially or
// in parallel, applies the stop-on-error policy, and hands back the deferred
// teardowns of every instance it constructed.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/strest/internal/stress"
)

// InstanceObserver is notified when an instance's setup and scenario chain
// resolves.
type InstanceObserver interface {
	ObserveInstance(index int, d time.Duration, err error)
}

// Coordinator executes directives against a lifecycle factory.
//
// A Coordinator is stateless between calls: the caller owns the instance
// counter (via firstIndex and Outcome.Next) and the teardown list (via
// Outcome.Teardowns), so one Coordinator can serve many test cases.
type Coordinator struct {
	// Factory builds the hooks of each instance.
	Factory stress.Factory

	// Store receives every report of every instance.
	Store *stress.Store

	// StopOnError aborts the directive on the first instance failure.
	StopOnError bool

	// Logger receives progress lines. Nil disables logging.
	Logger *zap.Logger

	// Observer is notified of every hook invocation. Optional.
	Observer stress.Observer

	// Instances is notified of every resolved instance chain. Optional.
	Instances InstanceObserver

	// Clock stamps timers. Nil uses the real clock.
	Clock stress.Clock
}

// Outcome is what one directive execution left behind.
type Outcome struct {
	// Next is the first instance index available to the following directive.
	Next int

	// Launched is the number of instances constructed.
	Launched int

	// Teardowns holds the deferred teardown of every constructed instance,
	// in index order, including the ones whose chain failed.
	Teardowns []stress.Teardown

	// Failures are the instance failures recorded with stop-on-error off.
	Failures []stress.FailureRecord
}

// Execute runs directive d. Run directives allocate the indices
// firstIndex..firstIndex+count-1.
//
// The returned Outcome is never nil, even on error, so the caller can still
// drain the teardowns of instances that were started.
func (c *Coordinator) Execute(ctx context.Context, d stress.Directive, firstIndex int) (*Outcome, error) {
	out := &Outcome{Next: firstIndex}

	if err := d.Validate(); err != nil {
		return out, &stress.ConfigError{Field: "directive", Message: err.Error()}
	}

	switch d.Kind() {
	case stress.DirectiveWait:
		return out, c.wait(ctx, d.Duration())
	case stress.DirectiveRun:
		out.Next = firstIndex + d.Count()
		if d.Parallel() {
			return out, c.runParallel(ctx, d.Count(), firstIndex, out)
		}
		return out, c.runSerial(ctx, d.Count(), firstIndex, out)
	default:
		return out, fmt.Errorf("unsupported directive %s", d)
	}
}

// wait pauses for d or until ctx is done.
func (c *Coordinator) wait(ctx context.Context, d time.Duration) error {
	c.logger().Info("waiting before next execution", zap.Duration("wait", d))

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runSerial starts instance K+1 only after instance K's chain resolved. A
// done ctx stops the loop; failures recorded so far are returned with it.
func (c *Coordinator) runSerial(ctx context.Context, count, firstIndex int, out *Outcome) error {
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return multierr.Append(c.aggregate(out), err)
		}

		in := c.launch(firstIndex+i, out)
		if err := c.runInstance(ctx, in); err != nil {
			if c.StopOnError {
				return err
			}
			out.Failures = append(out.Failures, stress.FailureRecord{Instance: in.Index(), Err: err})
		}
	}

	return c.aggregate(out)
}

// runParallel constructs every instance, starts them together and joins all
// of them. With stop-on-error the first failure is returned, but only after
// the siblings already running have finished; nothing is cancelled.
func (c *Coordinator) runParallel(ctx context.Context, count, firstIndex int, out *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	instances := make([]*stress.Instance, count)
	for i := range instances {
		instances[i] = c.launch(firstIndex+i, out)
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []stress.FailureRecord
	)

	for _, in := range instances {
		g.Go(func() error {
			err := c.runInstance(ctx, in)
			if err == nil {
				return nil
			}
			if c.StopOnError {
				return err
			}
			mu.Lock()
			failures = append(failures, stress.FailureRecord{Instance: in.Index(), Err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out.Failures = append(out.Failures, failures...)
	return c.aggregate(out)
}

// launch constructs an instance and registers its teardown.
func (c *Coordinator) launch(index int, out *Outcome) *stress.Instance {
	in := stress.Launch(index, c.Factory, c.Store, stress.InstanceOptions{
		Clock:    c.Clock,
		Observer: c.Observer,
	})
	out.Teardowns = append(out.Teardowns, in.Teardown)
	out.Launched++
	return in
}

func (c *Coordinator) runInstance(ctx context.Context, in *stress.Instance) error {
	log := c.logger().With(zap.Int("instance", in.Index()))
	log.Info("executing instance")

	start := time.Now()
	err := in.Run(ctx)
	elapsed := time.Since(start)

	if c.Instances != nil {
		c.Instances.ObserveInstance(in.Index(), elapsed, err)
	}
	if err != nil {
		log.Error("instance failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	log.Debug("instance finished", zap.Duration("elapsed", elapsed))
	return nil
}

// aggregate turns recorded failures into the composite directive failure.
func (c *Coordinator) aggregate(out *Outcome) error {
	if len(out.Failures) == 0 {
		return nil
	}
	stress.SortFailures(out.Failures)
	records := make([]stress.FailureRecord, len(out.Failures))
	copy(records, out.Failures)
	return &stress.ExecutionErrors{Failures: records}
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
