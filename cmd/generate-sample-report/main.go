package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wesleyorama2/strest/internal/output"
	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/engine"
	"github.com/wesleyorama2/strest/internal/stress/host"
	"github.com/wesleyorama2/strest/internal/stress/lifecycle"
	"github.com/wesleyorama2/strest/internal/stress/metrics"
	"github.com/wesleyorama2/strest/internal/stress/report"
)

// Generates sample-report.html (and .json) from a short synthetic run so the
// report templates can be reviewed without a target service.
func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := generate(context.Background(), dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample report generated: %s\n", filepath.Join(dir, report.Filename(sampleName, ".html")))
}

const sampleName = "sample-report"

func generate(ctx context.Context, dir string) error {
	factory, err := lifecycle.Sleep(lifecycle.SleepOptions{
		Setup:         2 * time.Millisecond,
		Scenario:      10 * time.Millisecond,
		Teardown:      time.Millisecond,
		Jitter:        5 * time.Millisecond,
		FailInstances: []int{3},
	})
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	stats := collector.ForSpec(sampleName)
	suite := &engine.Suite{
		Spec: &stress.Spec{
			Name:        sampleName,
			Description: "Synthetic sleep lifecycle with one failing instance",
			Repeat:      2,
			Sequences: []stress.Sequence{
				stress.NewSequence(stress.RunInstances(2), stress.WaitMillis(20), stress.RunParallel(4)),
			},
		},
		Factory: factory,
		Writers: []engine.ReportWriter{
			&report.HTMLWriter{Metrics: collector},
			&report.JSONWriter{Metrics: collector, Indent: true},
		},
		ReportDir: dir,
		Observer:  stats,
		Instances: stats,
		Cases:     stats,
	}

	runner := host.NewRunner(host.RunnerConfig{Printer: output.NewPrinter(os.Stdout, false)})
	if err := suite.Register(runner); err != nil {
		return err
	}
	runner.Run(ctx)
	return nil
}
