package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/wesleyorama2/strest/internal/stress/engine"
)

// Options carries what the configured writers need.
type Options struct {
	Metrics SnapshotSource
	S3      *S3Config
	Redis   *RedisConfig

	// S3Client overrides the client built from S3. Used by tests.
	S3Client PutObjectAPI
}

// Names lists the writers Build understands.
func Names() []string {
	names := []string{"html", "json", "msgpack", "redis", "s3"}
	sort.Strings(names)
	return names
}

// Build creates the named writers. The returned closer releases connections
// held by them and is never nil.
func Build(ctx context.Context, names []string, opts Options) ([]engine.ReportWriter, io.Closer, error) {
	var (
		writers []engine.ReportWriter
		closers closerList
		seen    = map[string]bool{}
	)

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "json":
			writers = append(writers, &JSONWriter{Metrics: opts.Metrics, Indent: true})
		case "html":
			writers = append(writers, &HTMLWriter{Metrics: opts.Metrics})
		case "msgpack":
			writers = append(writers, &MsgpackWriter{Metrics: opts.Metrics})
		case "s3":
			if opts.S3 == nil {
				_ = closers.Close()
				return nil, nopCloser{}, fmt.Errorf("reporter s3 requires an s3 section")
			}
			client := opts.S3Client
			if client == nil {
				c, err := NewS3Client(ctx, *opts.S3)
				if err != nil {
					_ = closers.Close()
					return nil, nopCloser{}, fmt.Errorf("reporter s3: %w", err)
				}
				client = c
			}
			writers = append(writers, &S3Writer{Client: client, Bucket: opts.S3.Bucket, Prefix: opts.S3.Prefix, Metrics: opts.Metrics})
		case "redis":
			if opts.Redis == nil {
				_ = closers.Close()
				return nil, nopCloser{}, fmt.Errorf("reporter redis requires a redis section")
			}
			w, err := NewRedisWriter(*opts.Redis)
			if err != nil {
				_ = closers.Close()
				return nil, nopCloser{}, fmt.Errorf("reporter redis: %w", err)
			}
			w.Metrics = opts.Metrics
			writers = append(writers, w)
			closers = append(closers, w)
		default:
			_ = closers.Close()
			return nil, nopCloser{}, fmt.Errorf("unknown reporter %q (available: %s)", raw, strings.Join(Names(), ", "))
		}
	}

	return writers, closers, nil
}

type closerList []io.Closer

func (l closerList) Close() error {
	var err error
	for _, c := range l {
		err = multierr.Append(err, c.Close())
	}
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
