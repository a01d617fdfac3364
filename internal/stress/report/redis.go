package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wesleyorama2/strest/internal/stress"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "strest:report"

// DefaultRedisTimeout is the default per-command timeout.
const DefaultRedisTimeout = 5 * time.Second

// RedisConfig configures the Redis report writer.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string `yaml:"url" json:"url"`
	// Channel is the pub/sub channel summaries are published to.
	Channel string `yaml:"channel" json:"channel"`
	// KeyPrefix, when set, also stores the full document under
	// <KeyPrefix><name>.
	KeyPrefix string `yaml:"keyPrefix" json:"keyPrefix"`
	// TTL expires stored documents. Zero keeps them.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// Timeout is the per-command timeout (default 5s).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RedisWriter publishes a summary of every report as JSON to a Redis channel
// and optionally stores the full document.
type RedisWriter struct {
	config  RedisConfig
	client  *goredis.Client
	Metrics SnapshotSource
}

// NewRedisWriter creates a Redis writer from the given config.
func NewRedisWriter(cfg RedisConfig) (*RedisWriter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis writer requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis writer: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisTimeout
	}

	return &RedisWriter{config: cfg, client: goredis.NewClient(opts)}, nil
}

func (w *RedisWriter) Name() string { return "redis" }

// WriteReport stores the document when a key prefix is configured, then
// publishes the summary.
func (w *RedisWriter) WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error {
	doc := NewDocument(name, description, store, w.Metrics)
	summary := doc.Summary()

	if w.config.KeyPrefix != "" {
		key := w.config.KeyPrefix + name
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("redis: marshal document: %w", err)
		}

		setCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		err = w.client.Set(setCtx, key, body, w.config.TTL).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis: store document: %w", err)
		}
		summary.Location = "redis:" + key
	} else if dir != "" {
		summary.Location = dir
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()
	if err := w.client.Publish(pubCtx, w.config.Channel, body).Err(); err != nil {
		return fmt.Errorf("redis: publish summary: %w", err)
	}
	return nil
}

// Close releases writer resources.
func (w *RedisWriter) Close() error {
	return w.client.Close()
}
