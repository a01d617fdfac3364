package host

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/strest/internal/output"
	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/engine"
)

func TestRunner_RunsInOrder(t *testing.T) {
	r := NewRunner(RunnerConfig{})

	var order []string
	for _, title := range []string{"a", "b", "c"} {
		r.Case(title, func(context.Context) error {
			order = append(order, title)
			return nil
		})
	}
	r.AfterAll(func(context.Context) { order = append(order, "after") })

	summary := r.Run(context.Background())

	assert.Equal(t, []string{"a", "b", "c", "after"}, order)
	assert.Equal(t, 3, summary.Passed)
	assert.True(t, summary.OK())
	assert.Equal(t, []string{"a", "b", "c"}, r.Titles())
}

func TestRunner_FailureAndPanic(t *testing.T) {
	r := NewRunner(RunnerConfig{})
	r.Case("fails", func(context.Context) error { return errors.New("boom") })
	r.Case("panics", func(context.Context) error { panic("bad") })
	r.Case("passes", func(context.Context) error { return nil })

	summary := r.Run(context.Background())

	require.Len(t, summary.Cases, 3)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Passed)
	assert.False(t, summary.OK())
	assert.Equal(t, "boom", summary.Cases[0].Error)
	assert.Contains(t, summary.Cases[1].Error, "panicked")
}

func TestRunner_CaseTimeout(t *testing.T) {
	r := NewRunner(RunnerConfig{CaseTimeout: 20 * time.Millisecond})
	r.Case("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	summary := r.Run(context.Background())

	require.Len(t, summary.Cases, 1)
	assert.ErrorIs(t, summary.Cases[0].Err, context.DeadlineExceeded)
	assert.Contains(t, summary.Cases[0].Error, "exceeded timeout of 20ms")
}

func TestRunner_Only(t *testing.T) {
	r := NewRunner(RunnerConfig{Only: []string{"login"}})
	ran := 0
	for _, title := range []string{"[ #1 ][ I(1) ] - login", "[ #1 ][ I(1) ] - checkout"} {
		r.Case(title, func(context.Context) error {
			ran++
			return nil
		})
	}

	summary := r.Run(context.Background())

	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, summary.Skipped)
	assert.True(t, summary.Cases[1].Skipped)
}

func TestRunner_AfterAllRunsWhenItsCasesAreDone(t *testing.T) {
	r := NewRunner(RunnerConfig{Only: []string{"a2", "b"}})

	var order []string
	record := func(name string) engine.CaseFunc {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	r.AfterAll(func(context.Context) { order = append(order, "first") })
	r.Case("a1", record("a1"))
	r.Case("a2", record("a2"))
	r.AfterAll(func(context.Context) { order = append(order, "after a") })
	r.Case("b1", record("b1"))
	r.AfterAll(func(context.Context) { order = append(order, "after b") })

	summary := r.Run(context.Background())

	assert.Equal(t, []string{"a2", "after a", "b1", "after b", "first"}, order)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRunner_AfterAllGetsLiveContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(RunnerConfig{})
	r.Case("cancels", func(context.Context) error {
		cancel()
		return nil
	})
	r.Case("skipped", func(context.Context) error { return errors.New("should not run") })

	var afterErr error
	r.AfterAll(func(ctx context.Context) { afterErr = ctx.Err() })

	summary := r.Run(ctx)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.NoError(t, afterErr)
}

func TestRunner_WithSuite(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{Printer: output.NewPrinter(&buf, true)})

	suite := &engine.Suite{
		Spec: &stress.Spec{
			Name:      "demo",
			Repeat:    2,
			Sequences: []stress.Sequence{stress.NewSequence(stress.RunInstances(2))},
		},
		Factory: func(index int) *stress.Hooks {
			return &stress.Hooks{
				Scenario: func(context.Context, *stress.Timer, *stress.PhaseResult) (any, error) {
					if index == 1 {
						return nil, errors.New("refused")
					}
					return nil, nil
				},
			}
		},
	}
	require.NoError(t, suite.Register(r))

	summary := r.Run(context.Background())

	assert.Equal(t, 2, summary.Failed)
	out := buf.String()
	assert.Contains(t, out, "✗ [ #1 ][ I(2) ] - demo")
	assert.Contains(t, out, "instance #1: scenario failed: refused")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "s)"))
}
