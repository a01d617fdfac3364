// Package host provides the test runners that execute the cases registered
// by the engine: a command line runner and an adapter for go test.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/strest/internal/output"
	"github.com/wesleyorama2/strest/internal/stress/engine"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// CaseTimeout bounds each case. Zero means no timeout.
	CaseTimeout time.Duration

	// Only restricts execution to cases whose title contains one of the
	// given substrings. Empty runs everything.
	Only []string

	// Printer renders progress. Nil prints nothing.
	Printer *output.Printer

	// Logger receives runner events. Nil disables logging.
	Logger *zap.Logger
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Title    string        `json:"title"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// Summary aggregates the results of a run.
type Summary struct {
	Cases    []CaseResult  `json:"cases"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether no case failed.
func (s *Summary) OK() bool { return s.Failed == 0 }

type registered struct {
	title string
	fn    engine.CaseFunc
}

// afterHook runs once the first `after` registered cases are done.
type afterHook struct {
	after int
	fn    func(ctx context.Context)
	done  bool
}

// Runner executes registered cases one at a time in registration order.
// Each after-all hook runs as soon as the cases registered before it are
// done, so a suite's reports are written before the next suite starts.
type Runner struct {
	config   RunnerConfig
	cases    []registered
	afterAll []*afterHook
}

var _ engine.Host = (*Runner)(nil)

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{config: cfg}
}

// Case registers a test case.
func (r *Runner) Case(title string, fn engine.CaseFunc) {
	r.cases = append(r.cases, registered{title: title, fn: fn})
}

// AfterAll registers a hook run after every case registered so far. A hook
// registered before any case runs at the end of Run.
func (r *Runner) AfterAll(fn func(ctx context.Context)) {
	r.afterAll = append(r.afterAll, &afterHook{after: len(r.cases), fn: fn})
}

// Titles returns the titles of the registered cases in order.
func (r *Runner) Titles() []string {
	titles := make([]string, len(r.cases))
	for i, c := range r.cases {
		titles[i] = c.title
	}
	return titles
}

// Run executes every case. A cancelled ctx marks the remaining cases as
// skipped; after-all hooks still run, on a context that is never cancelled.
func (r *Runner) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{Cases: make([]CaseResult, 0, len(r.cases))}
	hookCtx := context.WithoutCancel(ctx)

	for i, c := range r.cases {
		if !r.selected(c.title) || ctx.Err() != nil {
			summary.Cases = append(summary.Cases, CaseResult{Title: c.title, Skipped: true})
			summary.Skipped++
		} else {
			res := r.runCase(ctx, c)
			summary.Cases = append(summary.Cases, res)
			if res.Passed {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
		r.flushAfterAll(hookCtx, i+1, false)
	}
	r.flushAfterAll(hookCtx, len(r.cases), true)

	summary.Duration = time.Since(start)
	if p := r.config.Printer; p != nil {
		p.Summary(summary.Passed, summary.Failed, summary.Duration)
	}
	return summary
}

func (r *Runner) runCase(ctx context.Context, c registered) (res CaseResult) {
	res.Title = c.title
	if p := r.config.Printer; p != nil {
		p.CaseStarted(c.title)
	}

	if r.config.CaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.CaseTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			res.Err = fmt.Errorf("case panicked: %v", v)
		}
		res.Duration = time.Since(start)
		res.Passed = res.Err == nil
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		r.report(res)
	}()

	res.Err = c.fn(ctx)
	if res.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Err = fmt.Errorf("case exceeded timeout of %s: %w", r.config.CaseTimeout, res.Err)
	}
	return res
}

// flushAfterAll runs the pending hooks whose cases are all done. Hooks
// registered before any case wait for the final flush.
func (r *Runner) flushAfterAll(ctx context.Context, done int, final bool) {
	for _, h := range r.afterAll {
		if h.done || h.after > done || (h.after == 0 && !final) {
			continue
		}
		h.done = true
		r.runAfterAll(ctx, h.fn)
	}
}

func (r *Runner) runAfterAll(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if v := recover(); v != nil {
			r.logger().Error("after-all hook panicked", zap.Any("panic", v))
		}
	}()
	fn(ctx)
}

func (r *Runner) report(res CaseResult) {
	log := r.logger().With(zap.String("case", res.Title), zap.Duration("elapsed", res.Duration))
	if res.Passed {
		log.Debug("case passed")
		if p := r.config.Printer; p != nil {
			p.CasePassed(res.Title, res.Duration)
		}
		return
	}
	log.Debug("case failed", zap.Error(res.Err))
	if p := r.config.Printer; p != nil {
		p.CaseFailed(res.Title, res.Duration, res.Err)
	}
}

func (r *Runner) selected(title string) bool {
	if len(r.config.Only) == 0 {
		return true
	}
	for _, pattern := range r.config.Only {
		if strings.Contains(title, pattern) {
			return true
		}
	}
	return false
}

func (r *Runner) logger() *zap.Logger {
	if r.config.Logger == nil {
		return zap.NewNop()
	}
	return r.config.Logger
}
