package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/report"
	"github.com/wesleyorama2/strest/pkg/jsonschema"
)

// Validate reports every semantic problem the schema cannot express.
func (c *Config) Validate() error {
	errs := &stress.ConfigErrors{}

	if len(c.Tests) == 0 {
		errs.Add("tests", "at least one test is required")
	}

	known := report.Names()
	for _, name := range c.Reporters {
		name = strings.ToLower(strings.TrimSpace(name))
		switch {
		case !slices.Contains(known, name):
			errs.Add("reporters", fmt.Sprintf("unknown reporter %q, expected one of %v", name, known))
		case name == "s3" && c.S3 == nil:
			errs.Add("s3", "the s3 reporter needs an s3 section")
		case name == "redis" && c.Redis == nil:
			errs.Add("redis", "the redis reporter needs a redis section")
		}
	}

	if c.CaseTimeout.Duration < 0 {
		errs.Add("caseTimeout", "cannot be negative")
	}
	if c.TeardownTimeout.Duration < 0 {
		errs.Add("teardownTimeout", "cannot be negative")
	}

	seen := map[string]bool{}
	for i := range c.Tests {
		t := &c.Tests[i]
		prefix := fmt.Sprintf("tests[%d]", i)
		if t.Name == "" {
			errs.Add(prefix+".name", "name is required")
		} else if seen[t.Name] {
			errs.Add(prefix+".name", fmt.Sprintf("duplicate test name %q", t.Name))
		}
		seen[t.Name] = true
		t.validate(prefix, errs)
	}

	return errs.Err()
}

func (t *TestConfig) validate(prefix string, errs *stress.ConfigErrors) {
	if t.Repeat < 0 {
		errs.Add(prefix+".repeat", fmt.Sprintf("repeat cannot be negative, got %d", t.Repeat))
	}

	if len(t.Sequences) == 0 {
		errs.Add(prefix+".sequences", "at least one directive sequence is required")
	}
	for i, seq := range t.Sequences {
		if len(seq) == 0 {
			errs.Add(fmt.Sprintf("%s.sequences[%d]", prefix, i), "sequence has no directives")
		}
		for j, d := range seq {
			if err := d.validate(); err != nil {
				errs.Add(fmt.Sprintf("%s.sequences[%d][%d]", prefix, i, j), err.Error())
			}
		}
	}

	t.Lifecycle.validate(prefix+".lifecycle", errs)
}

func (d DirectiveConfig) validate() error {
	switch {
	case d.Run != nil && d.Wait != nil:
		return fmt.Errorf("a directive either runs instances or waits, not both")
	case d.Run != nil:
		if *d.Run < 1 {
			return fmt.Errorf("instance count must be at least 1, got %d", *d.Run)
		}
	case d.Wait != nil:
		if d.Parallel != nil {
			return fmt.Errorf("parallel only applies to run directives")
		}
		if d.Wait.Duration < 0 {
			return fmt.Errorf("wait cannot be negative, got %s", d.Wait.Duration)
		}
	default:
		return fmt.Errorf("directive needs run or wait")
	}
	return nil
}

func (l LifecycleConfig) validate(prefix string, errs *stress.ConfigErrors) {
	switch l.Kind {
	case "http":
		if l.HTTP == nil {
			errs.Add(prefix+".http", "the http lifecycle needs an http section")
			return
		}
		opts, err := l.HTTP.options(prefix + ".http")
		if err != nil {
			errs.Add(prefix+".http", err.Error())
			return
		}
		if err := opts.Validate(); err != nil {
			errs.Add(prefix+".http", err.Error())
		}
	case "sleep":
		if err := l.Sleep.options().Validate(); err != nil {
			errs.Add(prefix+".sleep", err.Error())
		}
	case "":
		errs.Add(prefix+".kind", "kind is required")
	default:
		errs.Add(prefix+".kind", fmt.Sprintf("unknown lifecycle kind %q", l.Kind))
	}
}

// compileSchema turns an inline response schema into a compiled one.
func compileSchema(name string, raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, nil
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s, err := jsonschema.Compile("response.schema.json", doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}
