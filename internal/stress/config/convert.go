package config

import (
	"fmt"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/lifecycle"
)

// Spec converts the test into a stress test spec. Run directives without
// their own parallel flag take the test's default.
func (t *TestConfig) Spec() *stress.Spec {
	spec := &stress.Spec{
		Name:        t.Name,
		Description: t.Description,
		Repeat:      t.Repeat,
		StopOnError: t.StopOnError,
	}

	for _, seq := range t.Sequences {
		directives := make([]stress.Directive, 0, len(seq))
		for _, d := range seq {
			directives = append(directives, d.Directive(t.Parallel))
		}
		spec.Sequences = append(spec.Sequences, stress.NewSequence(directives...))
	}
	return spec
}

// Directive converts the entry into a directive.
func (d DirectiveConfig) Directive(parallelDefault bool) stress.Directive {
	if d.Wait != nil {
		return stress.WaitFor(d.Wait.Duration)
	}
	parallel := parallelDefault
	if d.Parallel != nil {
		parallel = *d.Parallel
	}
	count := 0
	if d.Run != nil {
		count = *d.Run
	}
	return stress.Run(count, parallel)
}

// Factory builds the lifecycle of the test.
func (t *TestConfig) Factory() (stress.Factory, error) {
	l := t.Lifecycle
	switch l.Kind {
	case "http":
		if l.HTTP == nil {
			return nil, &stress.ConfigError{Field: "lifecycle.http", Message: "missing http section"}
		}
		opts, err := l.HTTP.options("lifecycle.http")
		if err != nil {
			return nil, err
		}
		return lifecycle.HTTP(opts)
	case "sleep":
		return lifecycle.Sleep(l.Sleep.options())
	default:
		return nil, &stress.ConfigError{Field: "lifecycle.kind", Message: fmt.Sprintf("unknown lifecycle kind %q", l.Kind)}
	}
}

func (h *HTTPConfig) options(prefix string) (lifecycle.HTTPOptions, error) {
	opts := lifecycle.HTTPOptions{
		BaseURL:            h.BaseURL,
		Timeout:            h.Timeout.Duration,
		Headers:            h.Headers,
		InsecureSkipVerify: h.InsecureSkipVerify,
		Requests:           h.Requests,
		RPS:                h.RPS,
	}

	var err error
	if opts.Request, err = h.Request.spec(prefix + ".request"); err != nil {
		return opts, err
	}
	if h.Connect != nil {
		connect, err := h.Connect.spec(prefix + ".connect")
		if err != nil {
			return opts, err
		}
		opts.Connect = &connect
	}
	if h.Disconnect != nil {
		disconnect, err := h.Disconnect.spec(prefix + ".disconnect")
		if err != nil {
			return opts, err
		}
		opts.Disconnect = &disconnect
	}
	return opts, nil
}

func (r RequestConfig) spec(prefix string) (lifecycle.RequestSpec, error) {
	schema, err := compileSchema(prefix+".expect.schema", r.Expect.Schema)
	if err != nil {
		return lifecycle.RequestSpec{}, err
	}
	return lifecycle.RequestSpec{
		Method:  r.Method,
		Path:    r.Path,
		Query:   r.Query,
		Headers: r.Headers,
		Body:    r.Body,
		Expect: lifecycle.Expectation{
			Status:      r.Expect.Status,
			MaxDuration: r.Expect.MaxDuration.Duration,
			JSONPath:    r.Expect.JSONPath,
			Schema:      schema,
		},
	}, nil
}

func (s *SleepConfig) options() lifecycle.SleepOptions {
	if s == nil {
		return lifecycle.SleepOptions{}
	}
	return lifecycle.SleepOptions{
		Setup:         s.Setup.Duration,
		Scenario:      s.Scenario.Duration,
		Teardown:      s.Teardown.Duration,
		Jitter:        s.Jitter.Duration,
		FailInstances: s.FailInstances,
		FailStep:      stress.Step(s.FailStep),
	}
}
