package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wesleyorama2/strest/internal/stress"
)

// recorder builds hooks that log scenario start/end and fail the listed indices.
type recorder struct {
	mu        sync.Mutex
	events    []string
	teardowns atomic.Int32
	fail      map[int]bool
	delay     time.Duration
}

func (p *recorder) log(format string, args ...any) {
	p.mu.Lock()
	p.events = append(p.events, fmt.Sprintf(format, args...))
	p.mu.Unlock()
}

func (p *recorder) factory(index int) *stress.Hooks {
	return &stress.Hooks{
		Scenario: func(context.Context, *stress.Timer, *stress.PhaseResult) (any, error) {
			p.log("start %d", index)
			time.Sleep(p.delay)
			p.log("end %d", index)
			if p.fail[index] {
				return nil, fmt.Errorf("instance %d refused", index)
			}
			return nil, nil
		},
		Teardown: func(context.Context, *stress.Timer, *stress.PhaseResult, *stress.PhaseResult) (any, error) {
			p.teardowns.Add(1)
			return nil, nil
		},
	}
}

func (p *recorder) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func drain(t *testing.T, out *Outcome) {
	t.Helper()
	for _, td := range out.Teardowns {
		require.NoError(t, td(context.Background()))
	}
}

func newCoordinator(t *testing.T, p *recorder, stopOnError bool) *Coordinator {
	return &Coordinator{
		Factory:     p.factory,
		Store:       stress.NewStore(),
		StopOnError: stopOnError,
		Logger:      zaptest.NewLogger(t),
	}
}

func TestExecute_SerialOrdering(t *testing.T) {
	p := &recorder{delay: 5 * time.Millisecond}
	c := newCoordinator(t, p, false)

	out, err := c.Execute(context.Background(), stress.RunInstances(3), 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"start 4", "end 4", "start 5", "end 5", "start 6", "end 6"}, p.snapshot())
	assert.Equal(t, 7, out.Next)
	assert.Equal(t, 3, out.Launched)
	assert.Len(t, out.Teardowns, 3)
}

func TestExecute_ParallelStartsTogether(t *testing.T) {
	const count = 5

	var started sync.WaitGroup
	started.Add(count)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	factory := func(int) *stress.Hooks {
		return &stress.Hooks{
			Scenario: func(context.Context, *stress.Timer, *stress.PhaseResult) (any, error) {
				started.Done()
				// Every instance blocks until all of them are running, which
				// only resolves if they were started together.
				select {
				case <-allStarted:
					return nil, nil
				case <-time.After(5 * time.Second):
					return nil, errors.New("siblings never started")
				}
			},
		}
	}

	c := &Coordinator{Factory: factory, Store: stress.NewStore()}
	out, err := c.Execute(context.Background(), stress.RunParallel(count), 0)

	require.NoError(t, err)
	assert.Equal(t, count, out.Next)
	assert.Len(t, out.Teardowns, count)
}

func TestExecute_ParallelJoinsAll(t *testing.T) {
	p := &recorder{delay: 20 * time.Millisecond}
	c := newCoordinator(t, p, false)

	_, err := c.Execute(context.Background(), stress.RunParallel(4), 0)
	require.NoError(t, err)

	ends := 0
	for _, e := range p.snapshot() {
		if len(e) > 3 && e[:3] == "end" {
			ends++
		}
	}
	assert.Equal(t, 4, ends, "directive resolved before every instance finished")
}

func TestExecute_ParallelNoSlowerThanSerial(t *testing.T) {
	elapsed := func(d stress.Directive) time.Duration {
		p := &recorder{delay: 15 * time.Millisecond}
		c := newCoordinator(t, p, false)
		start := time.Now()
		out, err := c.Execute(context.Background(), d, 0)
		require.NoError(t, err)
		drain(t, out)
		return time.Since(start)
	}

	serial := elapsed(stress.RunInstances(4))
	parallel := elapsed(stress.RunParallel(4))

	assert.GreaterOrEqual(t, serial, 60*time.Millisecond)
	assert.LessOrEqual(t, parallel, serial)
}

func TestExecute_Wait(t *testing.T) {
	c := &Coordinator{Store: stress.NewStore()}

	start := time.Now()
	out, err := c.Execute(context.Background(), stress.WaitMillis(30), 3)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 3, out.Next)
	assert.Zero(t, out.Launched)
	assert.Empty(t, out.Teardowns)
}

func TestExecute_WaitCancelled(t *testing.T) {
	c := &Coordinator{Store: stress.NewStore()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Execute(ctx, stress.WaitFor(time.Minute), 0)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecute_CollectsFailures(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			p := &recorder{fail: map[int]bool{1: true, 3: true}}
			c := newCoordinator(t, p, false)

			out, err := c.Execute(context.Background(), stress.Run(5, parallel), 0)

			var execErr *stress.ExecutionErrors
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, []int{1, 3}, execErr.Instances())
			assert.Len(t, execErr.Failures, 2)
			assert.Contains(t, err.Error(), "instance #1")
			assert.Contains(t, err.Error(), "instance #3")

			require.Len(t, out.Teardowns, 5)
			drain(t, out)
			assert.EqualValues(t, 5, p.teardowns.Load())
		})
	}
}

func TestExecute_StopOnErrorSerial(t *testing.T) {
	p := &recorder{fail: map[int]bool{1: true}}
	c := newCoordinator(t, p, true)

	out, err := c.Execute(context.Background(), stress.RunInstances(4), 0)

	var pe *stress.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Instance)
	assert.Equal(t, stress.StepScenario, pe.Step)

	// Instances 2 and 3 were never constructed.
	assert.Equal(t, 2, out.Launched)
	require.Len(t, out.Teardowns, 2)
	drain(t, out)
	assert.EqualValues(t, 2, p.teardowns.Load())
	assert.Equal(t, []string{"start 0", "end 0", "start 1", "end 1"}, p.snapshot())
}

func TestExecute_StopOnErrorParallelLetsSiblingsFinish(t *testing.T) {
	p := &recorder{fail: map[int]bool{0: true}, delay: 10 * time.Millisecond}
	c := newCoordinator(t, p, true)

	out, err := c.Execute(context.Background(), stress.RunParallel(3), 0)

	var pe *stress.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Instance)

	ends := 0
	for _, e := range p.snapshot() {
		if len(e) > 3 && e[:3] == "end" {
			ends++
		}
	}
	assert.Equal(t, 3, ends)
	assert.Len(t, out.Teardowns, 3)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	p := &recorder{}
	c := newCoordinator(t, p, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := c.Execute(ctx, stress.RunInstances(3), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Launched)
	assert.Empty(t, p.snapshot())
}

func TestExecute_CancelledMidSerialKeepsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := func(index int) *stress.Hooks {
		return &stress.Hooks{
			Scenario: func(context.Context, *stress.Timer, *stress.PhaseResult) (any, error) {
				if index == 0 {
					cancel()
					return nil, errors.New("boom")
				}
				return nil, nil
			},
		}
	}

	c := &Coordinator{Factory: factory, Store: stress.NewStore(), Logger: zaptest.NewLogger(t)}
	out, err := c.Execute(ctx, stress.RunInstances(3), 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var execErr *stress.ExecutionErrors
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, []int{0}, execErr.Instances())
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, 1, out.Launched)
	assert.Len(t, out.Failures, 1)
}

func TestExecute_InvalidDirective(t *testing.T) {
	c := &Coordinator{Store: stress.NewStore()}
	_, err := c.Execute(context.Background(), stress.RunInstances(0), 0)
	assert.ErrorIs(t, err, stress.ErrConfiguration)
}

type countingObserver struct {
	mu     sync.Mutex
	failed []int
	total  int
}

func (o *countingObserver) ObserveInstance(index int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total++
	if err != nil {
		o.failed = append(o.failed, index)
	}
}

func TestExecute_InstanceObserver(t *testing.T) {
	p := &recorder{fail: map[int]bool{2: true}}
	obs := &countingObserver{}
	c := newCoordinator(t, p, false)
	c.Instances = obs

	_, err := c.Execute(context.Background(), stress.RunInstances(3), 0)
	require.Error(t, err)

	assert.Equal(t, 3, obs.total)
	assert.Equal(t, []int{2}, obs.failed)
}
