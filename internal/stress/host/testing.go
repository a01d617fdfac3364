package host

import (
	"context"
	"testing"
	"time"

	"github.com/wesleyorama2/strest/internal/stress/engine"
)

// T adapts a *testing.T so suites can run under go test. Each case becomes a
// subtest; after-all hooks run as test cleanups.
type T struct {
	t       *testing.T
	timeout time.Duration
}

var _ engine.Host = (*T)(nil)

// NewT wraps t. A positive timeout bounds every case.
func NewT(t *testing.T, timeout time.Duration) *T {
	return &T{t: t, timeout: timeout}
}

// Case runs fn as a subtest immediately.
func (h *T) Case(title string, fn engine.CaseFunc) {
	h.t.Run(title, func(t *testing.T) {
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			t.Error(err)
		}
	})
}

// AfterAll registers fn as a cleanup of the parent test.
func (h *T) AfterAll(fn func(ctx context.Context)) {
	h.t.Cleanup(func() { fn(context.Background()) })
}
