// Package config handles loading strest configuration files: YAML or JSON,
// with ${VAR} expansion, schema validation and conversion into stress test
// specs and lifecycles.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/strest/internal/stress/report"
)

// DefaultReportDirectory is where report writers put their artifacts.
const DefaultReportDirectory = "./reports/"

// Config represents a strest configuration file.
type Config struct {
	// ReportDirectory is handed to every report writer.
	ReportDirectory string `yaml:"reportDirectory"`

	// Reporters names the report writers to run after each test.
	Reporters []string `yaml:"reporters"`

	// CaseTimeout bounds each test case. Zero means no limit.
	CaseTimeout Duration `yaml:"caseTimeout"`

	// TeardownTimeout bounds the teardown drain of each case.
	TeardownTimeout Duration `yaml:"teardownTimeout"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`

	S3    *report.S3Config    `yaml:"s3"`
	Redis *report.RedisConfig `yaml:"redis"`

	Tests []TestConfig `yaml:"tests"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address /metrics is served on. Empty disables it.
	Listen string `yaml:"listen"`
}

// TestConfig declares one stress test.
type TestConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Repeat is how many cases each sequence produces. Zero means once.
	Repeat int `yaml:"repeat"`

	StopOnError bool `yaml:"stopOnError"`

	// Parallel is the default mode of run directives without their own flag.
	Parallel bool `yaml:"parallel"`

	Sequences [][]DirectiveConfig `yaml:"sequences"`

	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// DirectiveConfig is one entry of a sequence. It is written as a bare
// integer (run n instances), {run: n, parallel: bool} or {wait: 500ms}.
type DirectiveConfig struct {
	Run      *int      `yaml:"run"`
	Parallel *bool     `yaml:"parallel"`
	Wait     *Duration `yaml:"wait"`
}

// UnmarshalYAML accepts the bare integer shorthand.
func (d *DirectiveConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("line %d: directive must be an instance count or a mapping: %w", node.Line, err)
		}
		*d = DirectiveConfig{Run: &n}
		return nil
	}

	type plain DirectiveConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DirectiveConfig(p)
	return nil
}

// LifecycleConfig selects one of the built-in lifecycles.
type LifecycleConfig struct {
	Kind  string       `yaml:"kind"`
	HTTP  *HTTPConfig  `yaml:"http"`
	Sleep *SleepConfig `yaml:"sleep"`
}

// HTTPConfig configures the http lifecycle.
type HTTPConfig struct {
	BaseURL            string            `yaml:"baseUrl"`
	Timeout            Duration          `yaml:"timeout"`
	Headers            map[string]string `yaml:"headers"`
	InsecureSkipVerify bool              `yaml:"insecureSkipVerify"`
	Connect            *RequestConfig    `yaml:"connect"`
	Request            RequestConfig     `yaml:"request"`
	Requests           int               `yaml:"requests"`
	RPS                float64           `yaml:"rps"`
	Disconnect         *RequestConfig    `yaml:"disconnect"`
}

// RequestConfig describes one request of the http lifecycle.
type RequestConfig struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Query   map[string]string `yaml:"query"`
	Headers map[string]string `yaml:"headers"`
	Body    any               `yaml:"body"`
	Expect  ExpectConfig      `yaml:"expect"`
}

// ExpectConfig lists the assertions of a request.
type ExpectConfig struct {
	Status      []int             `yaml:"status"`
	MaxDuration Duration          `yaml:"maxDuration"`
	JSONPath    map[string]string `yaml:"jsonPath"`
	Schema      map[string]any    `yaml:"schema"`
}

// SleepConfig configures the synthetic sleep lifecycle.
type SleepConfig struct {
	Setup         Duration `yaml:"setup"`
	Scenario      Duration `yaml:"scenario"`
	Teardown      Duration `yaml:"teardown"`
	Jitter        Duration `yaml:"jitter"`
	FailInstances []int    `yaml:"failInstances"`
	FailStep      string   `yaml:"failStep"`
}

// Duration wraps time.Duration for string parsing ("10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// ApplyDefaults fills unset top-level values.
func (c *Config) ApplyDefaults() {
	if c.ReportDirectory == "" {
		c.ReportDirectory = DefaultReportDirectory
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Test returns the test with the given name.
func (c *Config) Test(name string) (*TestConfig, bool) {
	for i := range c.Tests {
		if c.Tests[i].Name == name {
			return &c.Tests[i], true
		}
	}
	return nil, false
}
