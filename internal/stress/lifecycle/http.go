package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	strhttp "github.com/wesleyorama2/strest/internal/http"
	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/pkg/jsonpath"
	"github.com/wesleyorama2/strest/pkg/jsonschema"
)

// RequestSpec describes one request and what its response must satisfy.
// The placeholder {{instance}} in the path, query, headers and string bodies
// is replaced by the instance index.
type RequestSpec struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    any
	Expect  Expectation
}

// Expectation is the set of assertions evaluated on a response.
type Expectation struct {
	// Status lists the accepted status codes. Empty accepts any 2xx.
	Status []int

	// MaxDuration bounds the total request time. Zero disables the check.
	MaxDuration time.Duration

	// JSONPath maps a JSONPath expression to its expected string value.
	JSONPath map[string]string

	// Schema validates the response body.
	Schema *jsonschema.Schema
}

// HTTPOptions configures the http lifecycle.
type HTTPOptions struct {
	BaseURL            string
	Timeout            time.Duration
	Headers            map[string]string
	InsecureSkipVerify bool

	// Connect is sent during setup. Optional.
	Connect *RequestSpec

	// Request is sent Requests times during the scenario.
	Request RequestSpec

	// Requests defaults to 1.
	Requests int

	// RPS paces the scenario requests of one instance. Zero is unpaced.
	RPS float64

	// Disconnect is sent during teardown. Optional.
	Disconnect *RequestSpec
}

// Validate checks the options.
func (o HTTPOptions) Validate() error {
	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, errors.New("baseUrl is required"))
	} else if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("baseUrl %q is not an absolute URL", o.BaseURL))
	}
	if o.Requests < 0 {
		errs = append(errs, fmt.Errorf("requests cannot be negative, got %d", o.Requests))
	}
	if o.RPS < 0 {
		errs = append(errs, fmt.Errorf("rps cannot be negative, got %g", o.RPS))
	}
	if o.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}
	return errors.Join(errs...)
}

// RequestResult is the outcome of one request.
type RequestResult struct {
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration"`
	Failures []string      `json:"failures,omitempty"`
}

// Failed reports whether the request failed or broke an expectation.
func (r RequestResult) Failed() bool { return len(r.Failures) > 0 }

// HTTPResult is what the setup, scenario and teardown hooks of the http
// lifecycle return.
type HTTPResult struct {
	Results []RequestResult
}

// Failed counts the failed requests.
func (r *HTTPResult) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Summary returns request counts and latency figures for reports.
func (r *HTTPResult) Summary() map[string]any {
	summary := map[string]any{
		"requests": len(r.Results),
		"failed":   r.Failed(),
	}
	if len(r.Results) == 0 {
		return summary
	}

	var total, lo, hi time.Duration
	for i, res := range r.Results {
		total += res.Duration
		if i == 0 || res.Duration < lo {
			lo = res.Duration
		}
		if res.Duration > hi {
			hi = res.Duration
		}
	}
	summary["min"] = lo.String()
	summary["max"] = hi.String()
	summary["mean"] = (total / time.Duration(len(r.Results))).String()
	return summary
}

// HTTP returns a factory for instances that act as HTTP clients: setup sends
// the optional connect request, the scenario sends the request Requests times
// (paced by RPS), teardown sends the optional disconnect request and closes
// the client's idle connections.
//
// Transport errors and broken expectations do not abort the scenario; they
// are reported as ERROR reports and make scenarioReport fail. A failing
// connect request fails setup.
func HTTP(opts HTTPOptions) (stress.Factory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	requests := opts.Requests
	if requests == 0 {
		requests = 1
	}

	clientOpts := []strhttp.ClientOption{
		strhttp.WithBaseURL(opts.BaseURL),
		strhttp.WithTimeout(opts.Timeout),
		strhttp.WithInsecureSkipVerify(opts.InsecureSkipVerify),
	}
	for k, v := range opts.Headers {
		clientOpts = append(clientOpts, strhttp.WithHeader(k, v))
	}

	return func(index int) *stress.Hooks {
		client := strhttp.NewClient(clientOpts...)
		expand := strings.NewReplacer("{{instance}}", strconv.Itoa(index)).Replace

		var limiter *rate.Limiter
		if opts.RPS > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
		}

		return &stress.Hooks{
			Setup: func(ctx context.Context, t *stress.Timer) (any, error) {
				if opts.Connect == nil {
					return &HTTPResult{}, nil
				}
				t.Start()
				res := send(ctx, client, *opts.Connect, expand)
				t.Stop()
				if res.Failed() {
					return nil, fmt.Errorf("connect request failed: %s", strings.Join(res.Failures, "; "))
				}
				return &HTTPResult{Results: []RequestResult{res}}, nil
			},
			SetupReport: func(_ context.Context, r *stress.Reporter, setup *stress.PhaseResult) error {
				if opts.Connect != nil {
					r.Note("connected", resultData(setup))
				}
				return nil
			},
			Scenario: func(ctx context.Context, t *stress.Timer, _ *stress.PhaseResult) (any, error) {
				out := &HTTPResult{Results: make([]RequestResult, 0, requests)}
				t.Start()
				defer t.Stop()
				for i := 0; i < requests; i++ {
					if limiter != nil {
						if err := limiter.Wait(ctx); err != nil {
							return nil, err
						}
					}
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					out.Results = append(out.Results, send(ctx, client, opts.Request, expand))
				}
				return out, nil
			},
			ScenarioReport: func(_ context.Context, r *stress.Reporter, scenario *stress.PhaseResult) error {
				res, _ := scenario.Result.(*HTTPResult)
				if res == nil {
					return errors.New("scenario produced no result")
				}
				for i, req := range res.Results {
					if req.Failed() {
						r.Error("request failed", map[string]any{
							"request":  i,
							"status":   req.Status,
							"duration": req.Duration.String(),
							"failures": req.Failures,
						})
					}
				}
				r.Note("scenario finished", resultData(scenario))
				if failed := res.Failed(); failed > 0 {
					return fmt.Errorf("%d of %d requests failed", failed, len(res.Results))
				}
				return nil
			},
			Teardown: func(ctx context.Context, t *stress.Timer, _, _ *stress.PhaseResult) (any, error) {
				defer client.CloseIdleConnections()
				if opts.Disconnect == nil {
					return &HTTPResult{}, nil
				}
				t.Start()
				res := send(ctx, client, *opts.Disconnect, expand)
				t.Stop()
				if res.Failed() {
					return nil, fmt.Errorf("disconnect request failed: %s", strings.Join(res.Failures, "; "))
				}
				return &HTTPResult{Results: []RequestResult{res}}, nil
			},
			TeardownReport: func(_ context.Context, r *stress.Reporter, _, _, teardown *stress.PhaseResult) error {
				if opts.Disconnect != nil {
					r.Note("disconnected", resultData(teardown))
				}
				return nil
			},
		}
	}, nil
}

func resultData(res *stress.PhaseResult) map[string]any {
	data := map[string]any{}
	if r, ok := res.Result.(*HTTPResult); ok && r != nil {
		data = r.Summary()
	}
	if elapsed, err := res.ExecutionTime(); err == nil {
		data["executionTime"] = elapsed.String()
	}
	return data
}

// send performs spec and evaluates its expectations.
func send(ctx context.Context, client *strhttp.Client, spec RequestSpec, expand func(string) string) RequestResult {
	req := strhttp.NewRequest(spec.Method, expand(spec.Path))
	for k, v := range spec.Query {
		req.WithQueryParam(k, expand(v))
	}
	for k, v := range spec.Headers {
		req.WithHeader(k, expand(v))
	}
	if s, ok := spec.Body.(string); ok {
		req.WithBody(expand(s))
	} else if spec.Body != nil {
		req.WithBody(spec.Body)
	}

	start := time.Now()
	resp, err := client.Do(ctx, req)
	if err != nil {
		return RequestResult{Duration: time.Since(start), Failures: []string{err.Error()}}
	}

	result := RequestResult{Status: resp.StatusCode, Duration: resp.Timing.TotalTime}
	result.Failures = spec.Expect.Check(resp)
	return result
}

// Check returns a description of every broken expectation.
func (e Expectation) Check(resp *strhttp.Response) []string {
	var failures []string

	if len(e.Status) == 0 {
		if !resp.IsSuccess() {
			failures = append(failures, fmt.Sprintf("unexpected status %d", resp.StatusCode))
		}
	} else if !slices.Contains(e.Status, resp.StatusCode) {
		failures = append(failures, fmt.Sprintf("unexpected status %d, want one of %v", resp.StatusCode, e.Status))
	}

	if e.MaxDuration > 0 && resp.Timing.TotalTime > e.MaxDuration {
		failures = append(failures, fmt.Sprintf("took %s, limit %s", resp.Timing.TotalTime, e.MaxDuration))
	}

	paths := make([]string, 0, len(e.JSONPath))
	for p := range e.JSONPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		got, err := jsonpath.Extract(resp.Body, p)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if want := e.JSONPath[p]; got != want {
			failures = append(failures, fmt.Sprintf("%s: got %q, want %q", p, got, want))
		}
	}

	if e.Schema != nil {
		if err := e.Schema.ValidateJSON(resp.Body); err != nil {
			failures = append(failures, fmt.Sprintf("schema: %v", err))
		}
	}

	return failures
}
