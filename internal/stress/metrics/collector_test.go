package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/strest/internal/stress"
)

func TestCollector_StepPercentiles(t *testing.T) {
	c := NewCollector()

	for i := 1; i <= 100; i++ {
		c.ObservePhase(stress.StepScenario, i, time.Duration(i)*time.Millisecond, nil)
	}
	c.ObservePhase(stress.StepSetup, 0, 5*time.Millisecond, errors.New("refused"))

	snap := c.Snapshot()
	scenario := snap.Steps[stress.StepScenario]

	assert.EqualValues(t, 100, scenario.Count)
	assert.InDelta(t, float64(50*time.Millisecond), float64(scenario.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(scenario.P99), float64(time.Millisecond))
	assert.InDelta(t, float64(time.Millisecond), float64(scenario.Min), float64(10*time.Microsecond))
	assert.EqualValues(t, 1, snap.StepFailures[stress.StepSetup])
	assert.Zero(t, snap.StepFailures[stress.StepScenario])
}

func TestCollector_InstancesAndCases(t *testing.T) {
	c := NewCollector()

	c.ObserveInstance(0, 10*time.Millisecond, nil)
	c.ObserveInstance(1, 20*time.Millisecond, errors.New("boom"))
	c.ObserveCase("login", "[ #1 ][ I(2) ] - login", time.Second, errors.New("boom"))
	c.ObserveCase("login", "[ #2 ][ I(2) ] - login", time.Second, nil)

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap.Instances)
	assert.EqualValues(t, 1, snap.FailedInstances)
	assert.EqualValues(t, 2, snap.Cases)
	assert.EqualValues(t, 1, snap.FailedCases)
	assert.EqualValues(t, 2, snap.InstanceLatency.Count)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.instanceTotal.WithLabelValues("", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.caseTotal.WithLabelValues("login", "success")))
}

func TestCollector_Registry(t *testing.T) {
	c := NewCollector()
	login := c.ForSpec("login")
	login.ObservePhase(stress.StepTeardown, 0, time.Millisecond, nil)

	expected := `
# HELP strest_instances_total Instances whose setup and scenario chain resolved
# TYPE strest_instances_total counter
strest_instances_total{outcome="success",spec="login"} 1
`
	login.ObserveInstance(0, time.Millisecond, nil)
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "strest_instances_total"))

	count, err := testutil.GatherAndCount(c.Registry(), "strest_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_ForSpecIsolatesSpecs(t *testing.T) {
	c := NewCollector()
	a, b := c.ForSpec("a"), c.ForSpec("b")

	a.ObserveInstance(0, time.Millisecond, nil)
	for i := 0; i < 5; i++ {
		b.ObserveInstance(i, time.Millisecond, errors.New("boom"))
		b.ObservePhase(stress.StepScenario, i, time.Millisecond, nil)
	}
	b.ObserveCase("b", "[ #1 ][ I(5) ] - b", time.Second, nil)

	assert.Same(t, a, c.ForSpec("a"))
	assert.Same(t, b, a.ForSpec("b"))

	assert.EqualValues(t, 1, c.SpecSnapshot("a").Instances)
	assert.Zero(t, c.SpecSnapshot("a").FailedInstances)
	assert.Empty(t, c.SpecSnapshot("a").Steps)
	assert.EqualValues(t, 5, c.SpecSnapshot("b").Instances)
	assert.EqualValues(t, 5, c.SpecSnapshot("b").FailedInstances)
	assert.EqualValues(t, 1, c.SpecSnapshot("b").Cases)
	assert.Zero(t, c.SpecSnapshot("missing").Instances)

	total := c.Snapshot()
	assert.EqualValues(t, 6, total.Instances)
	assert.EqualValues(t, 5, total.Steps[stress.StepScenario].Count)
	assert.EqualValues(t, 1, total.Cases)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.instanceTotal.WithLabelValues("b", "failure")))
}

func TestCollector_ConcurrentObservations(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.ObservePhase(stress.StepScenario, index, time.Millisecond, nil)
				c.ObserveInstance(index, time.Millisecond, nil)
			}
		}(w)
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.EqualValues(t, 800, snap.Steps[stress.StepScenario].Count)
	assert.EqualValues(t, 800, snap.Instances)
}

func TestCollector_ClampsOutOfRange(t *testing.T) {
	c := NewCollector()
	c.ObservePhase(stress.StepSetup, 0, 0, nil)
	c.ObservePhase(stress.StepSetup, 0, 2*time.Hour, nil)

	stats := c.Snapshot().Steps[stress.StepSetup]
	assert.EqualValues(t, 2, stats.Count)
	assert.GreaterOrEqual(t, stats.Max, 59*time.Minute)
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.ObservePhase(stress.StepSetup, 0, time.Millisecond, errors.New("x"))
	c.ObserveInstance(0, time.Millisecond, nil)

	c.Reset()

	snap := c.Snapshot()
	assert.Empty(t, snap.Steps)
	assert.Empty(t, snap.StepFailures)
	assert.Zero(t, snap.Instances)
	assert.Zero(t, snap.InstanceLatency.Count)
}
