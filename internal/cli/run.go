package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wesleyorama2/strest/internal/logging"
	"github.com/wesleyorama2/strest/internal/output"
	"github.com/wesleyorama2/strest/internal/stress/config"
	"github.com/wesleyorama2/strest/internal/stress/engine"
	"github.com/wesleyorama2/strest/internal/stress/host"
	"github.com/wesleyorama2/strest/internal/stress/metrics"
	"github.com/wesleyorama2/strest/internal/stress/report"
)

// runOptions are the run command flags.
type runOptions struct {
	configFile  string
	only        []string
	reportDir   string
	reporters   []string
	timeout     time.Duration
	noColor     bool
	logLevel    string
	logFormat   string
	metricsAddr string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stress tests of a configuration file",
		Long: `Run every stress test declared in the configuration file. Each sequence
of each test becomes one case per repetition; cases run one at a time.

  strest run
  strest run --config login.yaml --only login --reporter json --reporter html
  strest run --metrics-addr :9464 --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := loadRunConfig(opts, flags.Changed("reporter"), flags.Changed("timeout"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runTests(ctx, cfg, opts, cmd)
			if err != nil {
				return err
			}
			if !summary.OK() {
				return ErrCasesFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Configuration file (default: strest.yaml, strest.yml or strest.json)")
	flags.StringSliceVar(&opts.only, "only", nil, "Run only cases whose title contains this text (repeatable)")
	flags.StringVar(&opts.reportDir, "report-dir", "", "Directory report writers write to")
	flags.StringSliceVar(&opts.reporters, "reporter", nil, fmt.Sprintf("Report writer to run (repeatable): %v", report.Names()))
	flags.DurationVarP(&opts.timeout, "timeout", "t", 0, "Timeout of each test case (0 for none)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console, json")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// loadRunConfig loads the configuration and applies flag overrides.
func loadRunConfig(opts *runOptions, reportersSet, timeoutSet bool) (*config.Config, error) {
	path, err := resolveConfigPath(opts.configFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if opts.reportDir != "" {
		cfg.ReportDirectory = opts.reportDir
	}
	if reportersSet {
		cfg.Reporters = opts.reporters
	}
	if timeoutSet {
		cfg.CaseTimeout.Duration = opts.timeout
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Listen = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runTests registers every test on a command line runner and runs it.
func runTests(ctx context.Context, cfg *config.Config, opts *runOptions, cmd *cobra.Command) (summary *host.Summary, err error) {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector()

	if cfg.Metrics.Listen != "" {
		_, shutdown, err := serveMetrics(cfg.Metrics.Listen, collector.Registry(), logger)
		if err != nil {
			return nil, err
		}
		defer shutdown()
	}

	writers, closer, err := report.Build(ctx, cfg.Reporters, report.Options{
		Metrics: collector,
		S3:      cfg.S3,
		Redis:   cfg.Redis,
	})
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closer.Close()) }()

	suites := make([]*engine.Suite, 0, len(cfg.Tests))
	for i := range cfg.Tests {
		t := &cfg.Tests[i]
		factory, err := t.Factory()
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", t.Name, err)
		}
		stats := collector.ForSpec(t.Name)
		suites = append(suites, &engine.Suite{
			Spec:            t.Spec(),
			Factory:         factory,
			Writers:         writers,
			ReportDir:       cfg.ReportDirectory,
			TeardownTimeout: cfg.TeardownTimeout.Duration,
			Logger:          logger,
			Observer:        stats,
			Instances:       stats,
			Cases:           stats,
		})
	}

	runner := host.NewRunner(host.RunnerConfig{
		CaseTimeout: cfg.CaseTimeout.Duration,
		Only:        opts.only,
		Printer:     output.NewPrinter(cmd.OutOrStdout(), opts.noColor),
		Logger:      logger,
	})
	if err := engine.Register(runner, suites...); err != nil {
		return nil, err
	}

	logger.Info("starting run", zap.Int("tests", len(suites)), zap.Int("cases", len(runner.Titles())))
	summary = runner.Run(ctx)
	logger.Info("run finished",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, nil
}

// serveMetrics exposes the registry on addr/metrics until the returned
// shutdown function is called. It returns the address actually bound.
func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
