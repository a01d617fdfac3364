package stresstest

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wesleyorama2/strest/internal/output"
	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/engine"
	"github.com/wesleyorama2/strest/internal/stress/host"
	"github.com/wesleyorama2/strest/internal/stress/lifecycle"
	"github.com/wesleyorama2/strest/internal/stress/metrics"
	"github.com/wesleyorama2/strest/internal/stress/report"
)

type (
	Spec         = stress.Spec
	Sequence     = stress.Sequence
	Directive    = stress.Directive
	Hooks        = stress.Hooks
	Factory      = stress.Factory
	Timer        = stress.Timer
	PhaseResult  = stress.PhaseResult
	Reporter     = stress.Reporter
	Store        = stress.Store
	Report       = stress.Report
	Suite        = engine.Suite
	ReportWriter = engine.ReportWriter
	Summary      = host.Summary
	CaseResult   = host.CaseResult

	HTTPOptions  = lifecycle.HTTPOptions
	RequestSpec  = lifecycle.RequestSpec
	Expectation  = lifecycle.Expectation
	SleepOptions = lifecycle.SleepOptions
)

var (
	NewSequence  = stress.NewSequence
	Run          = stress.Run
	RunInstances = stress.RunInstances
	RunParallel  = stress.RunParallel
	WaitFor      = stress.WaitFor
	WaitMillis   = stress.WaitMillis

	HTTP  = lifecycle.HTTP
	Sleep = lifecycle.Sleep

	ErrInjected = lifecycle.ErrInjected
)

// RunT runs every case of suites as a subtest of t. A positive timeout
// bounds each case. Report writers run when t finishes.
func RunT(t *testing.T, timeout time.Duration, suites ...*Suite) {
	t.Helper()
	if err := engine.Register(host.NewT(t, timeout), suites...); err != nil {
		t.Fatal(err)
	}
}

// Options configures Execute.
type Options struct {
	// Reporters names the report writers: json, html, msgpack, s3, redis.
	Reporters []string
	ReportDir string
	S3        *report.S3Config
	Redis     *report.RedisConfig

	CaseTimeout     time.Duration
	TeardownTimeout time.Duration

	// Only restricts the run to cases whose title contains one of these.
	Only []string

	// Output receives progress lines. Nil uses os.Stdout.
	Output  io.Writer
	NoColor bool

	Logger *zap.Logger
}

// Execute runs suites one case at a time, then their report writers. Suites
// without writers or a report directory get the ones from opts.
func Execute(ctx context.Context, opts Options, suites ...*Suite) (summary *Summary, err error) {
	collector := metrics.NewCollector()

	writers, closer, err := report.Build(ctx, opts.Reporters, report.Options{
		Metrics: collector,
		S3:      opts.S3,
		Redis:   opts.Redis,
	})
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closer.Close()) }()

	for _, s := range suites {
		stats := collector
		if s.Spec != nil {
			stats = collector.ForSpec(s.Spec.Name)
		}
		if s.Writers == nil {
			s.Writers = writers
		}
		if s.ReportDir == "" {
			s.ReportDir = opts.ReportDir
		}
		if s.TeardownTimeout == 0 {
			s.TeardownTimeout = opts.TeardownTimeout
		}
		if s.Logger == nil {
			s.Logger = opts.Logger
		}
		if s.Observer == nil {
			s.Observer = stats
		}
		if s.Instances == nil {
			s.Instances = stats
		}
		if s.Cases == nil {
			s.Cases = stats
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	runner := host.NewRunner(host.RunnerConfig{
		CaseTimeout: opts.CaseTimeout,
		Only:        opts.Only,
		Printer:     output.NewPrinter(out, opts.NoColor),
		Logger:      opts.Logger,
	})
	if err := engine.Register(runner, suites...); err != nil {
		return nil, err
	}
	return runner.Run(ctx), nil
}
