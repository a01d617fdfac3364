// Package metrics aggregates per-step timings of a stress run.
//
// A Collector implements the observer interfaces of the stress, executor and
// engine packages. It keeps HDR histograms for accurate percentiles and
// mirrors the same observations into Prometheus collectors so a run can be
// scraped while it is in progress.
//
// Each spec observes into its own child collector (ForSpec), so a report
// carries only the numbers of its own stress test. The root collector sees every
// observation of every child.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/strest/internal/stress"
)

// Config contains configuration for the collector.
type Config struct {
	// Namespace prefixes every Prometheus metric (default: "strest")
	Namespace string

	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:        "strest",
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}

// LatencyStats summarizes one histogram.
type LatencyStats struct {
	Count int64         `json:"count" msgpack:"count"`
	Min   time.Duration `json:"min" msgpack:"min"`
	Max   time.Duration `json:"max" msgpack:"max"`
	Mean  time.Duration `json:"mean" msgpack:"mean"`
	P50   time.Duration `json:"p50" msgpack:"p50"`
	P90   time.Duration `json:"p90" msgpack:"p90"`
	P95   time.Duration `json:"p95" msgpack:"p95"`
	P99   time.Duration `json:"p99" msgpack:"p99"`
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	Steps           map[stress.Step]LatencyStats `json:"steps" msgpack:"steps"`
	StepFailures    map[stress.Step]int64        `json:"stepFailures" msgpack:"stepFailures"`
	Instances       int64                        `json:"instances" msgpack:"instances"`
	FailedInstances int64                        `json:"failedInstances" msgpack:"failedInstances"`
	Cases           int64                        `json:"cases" msgpack:"cases"`
	FailedCases     int64                        `json:"failedCases" msgpack:"failedCases"`
	InstanceLatency LatencyStats                 `json:"instanceLatency" msgpack:"instanceLatency"`
}

// Collector records hook, instance and case observations.
//
// Collector is safe for concurrent use. Counters are atomic; HDR histograms
// are not thread-safe and are guarded by a mutex.
type Collector struct {
	config Config

	// spec labels the Prometheus series of a child; empty on the root.
	spec   string
	parent *Collector

	specsMu sync.Mutex
	specs   map[string]*Collector

	histMu       sync.Mutex
	stepHists    map[stress.Step]*hdrhistogram.Histogram
	stepFailures map[stress.Step]int64
	instanceHist *hdrhistogram.Histogram

	instances       atomic.Int64
	failedInstances atomic.Int64
	cases           atomic.Int64
	failedCases     atomic.Int64

	registry      *prometheus.Registry
	stepDuration  *prometheus.HistogramVec
	instanceTotal *prometheus.CounterVec
	caseTotal     *prometheus.CounterVec
	caseDuration  *prometheus.HistogramVec
}

var _ stress.Observer = (*Collector)(nil)

// NewCollector creates a collector with default configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(DefaultConfig())
}

// NewCollectorWithConfig creates a collector with its own Prometheus registry.
func NewCollectorWithConfig(config Config) *Collector {
	if config.Namespace == "" {
		config.Namespace = "strest"
	}

	c := &Collector{
		config:       config,
		stepHists:    make(map[stress.Step]*hdrhistogram.Histogram),
		stepFailures: make(map[stress.Step]int64),
		instanceHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		specs:        make(map[string]*Collector),
		registry:     prometheus.NewRegistry(),

		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "step_duration_seconds",
				Help:      "Wall-clock duration of lifecycle hook invocations",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"spec", "step", "outcome"},
		),
		instanceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "instances_total",
				Help:      "Instances whose setup and scenario chain resolved",
			},
			[]string{"spec", "outcome"},
		),
		caseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "cases_total",
				Help:      "Finished test cases",
			},
			[]string{"spec", "outcome"},
		),
		caseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "case_duration_seconds",
				Help:      "Wall-clock duration of test cases including teardown",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
			},
			[]string{"spec"},
		),
	}

	c.registry.MustRegister(c.stepDuration, c.instanceTotal, c.caseTotal, c.caseDuration)
	return c
}

// Registry returns the Prometheus registry holding the collector's metrics.
// Children share the registry of their root.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ForSpec returns the child collector of the named spec, creating it on first
// use. Calling ForSpec on a child resolves against the root.
func (c *Collector) ForSpec(spec string) *Collector {
	root := c.root()

	root.specsMu.Lock()
	defer root.specsMu.Unlock()

	if child, ok := root.specs[spec]; ok {
		return child
	}
	child := &Collector{
		config:        root.config,
		spec:          spec,
		parent:        root,
		stepHists:     make(map[stress.Step]*hdrhistogram.Histogram),
		stepFailures:  make(map[stress.Step]int64),
		instanceHist:  root.newHistogram(),
		registry:      root.registry,
		stepDuration:  root.stepDuration,
		instanceTotal: root.instanceTotal,
		caseTotal:     root.caseTotal,
		caseDuration:  root.caseDuration,
	}
	root.specs[spec] = child
	return child
}

// SpecSnapshot returns the statistics of the named spec only.
func (c *Collector) SpecSnapshot(spec string) *Snapshot {
	return c.ForSpec(spec).Snapshot()
}

// ObservePhase records one hook invocation.
func (c *Collector) ObservePhase(step stress.Step, _ int, d time.Duration, err error) {
	c.stepDuration.WithLabelValues(c.spec, string(step), outcome(err)).Observe(d.Seconds())

	for x := c; x != nil; x = x.parent {
		x.recordPhase(step, d, err)
	}
}

// ObserveInstance records a resolved instance chain.
func (c *Collector) ObserveInstance(_ int, d time.Duration, err error) {
	c.instanceTotal.WithLabelValues(c.spec, outcome(err)).Inc()

	for x := c; x != nil; x = x.parent {
		x.recordInstance(d, err)
	}
}

// ObserveCase records a finished case.
func (c *Collector) ObserveCase(spec, _ string, d time.Duration, err error) {
	c.caseTotal.WithLabelValues(spec, outcome(err)).Inc()
	c.caseDuration.WithLabelValues(spec).Observe(d.Seconds())

	for x := c; x != nil; x = x.parent {
		x.cases.Add(1)
		if err != nil {
			x.failedCases.Add(1)
		}
	}
}

func (c *Collector) recordPhase(step stress.Step, d time.Duration, err error) {
	c.histMu.Lock()
	defer c.histMu.Unlock()

	hist, ok := c.stepHists[step]
	if !ok {
		hist = c.newHistogram()
		c.stepHists[step] = hist
	}
	hist.RecordValue(c.clamp(d.Microseconds()))
	if err != nil {
		c.stepFailures[step]++
	}
}

func (c *Collector) recordInstance(d time.Duration, err error) {
	c.instances.Add(1)
	if err != nil {
		c.failedInstances.Add(1)
	}

	c.histMu.Lock()
	c.instanceHist.RecordValue(c.clamp(d.Microseconds()))
	c.histMu.Unlock()
}

func (c *Collector) root() *Collector {
	if c.parent != nil {
		return c.parent
	}
	return c
}

// Snapshot returns the current statistics.
func (c *Collector) Snapshot() *Snapshot {
	c.histMu.Lock()
	defer c.histMu.Unlock()

	snap := &Snapshot{
		Steps:           make(map[stress.Step]LatencyStats, len(c.stepHists)),
		StepFailures:    make(map[stress.Step]int64, len(c.stepFailures)),
		Instances:       c.instances.Load(),
		FailedInstances: c.failedInstances.Load(),
		Cases:           c.cases.Load(),
		FailedCases:     c.failedCases.Load(),
		InstanceLatency: stats(c.instanceHist),
	}
	for step, hist := range c.stepHists {
		snap.Steps[step] = stats(hist)
	}
	for step, n := range c.stepFailures {
		snap.StepFailures[step] = n
	}
	return snap
}

// Reset clears the values recorded by c. Children and Prometheus counters
// are not reset.
func (c *Collector) Reset() {
	c.histMu.Lock()
	defer c.histMu.Unlock()

	c.stepHists = make(map[stress.Step]*hdrhistogram.Histogram)
	c.stepFailures = make(map[stress.Step]int64)
	c.instanceHist.Reset()
	c.instances.Store(0)
	c.failedInstances.Store(0)
	c.cases.Store(0)
	c.failedCases.Store(0)
}

func (c *Collector) newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(c.config.HistogramMin, c.config.HistogramMax, c.config.HistogramSigFigs)
}

func (c *Collector) clamp(v int64) int64 {
	if v < c.config.HistogramMin {
		return c.config.HistogramMin
	}
	if v > c.config.HistogramMax {
		return c.config.HistogramMax
	}
	return v
}

func stats(h *hdrhistogram.Histogram) LatencyStats {
	if h.TotalCount() == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Count: h.TotalCount(),
		Min:   time.Duration(h.Min()) * time.Microsecond,
		Max:   time.Duration(h.Max()) * time.Microsecond,
		Mean:  time.Duration(h.Mean()) * time.Microsecond,
		P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
		P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
