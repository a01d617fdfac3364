package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wesleyorama2/strest/internal/stress"
)

// S3Config holds configuration for the S3 report writer.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string `yaml:"bucket" json:"bucket"`
	// Prefix is the key prefix within the bucket (optional).
	Prefix string `yaml:"prefix" json:"prefix"`
	// Region is the AWS region (optional, uses default chain if empty).
	Region string `yaml:"region" json:"region"`
	// Endpoint is a custom endpoint URL for S3-compatible providers.
	// Empty uses the default AWS endpoint.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool `yaml:"usePathStyle" json:"usePathStyle"`
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// PutObjectAPI is the subset of the S3 client used by S3Writer.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client creates an S3 client using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsConfig, s3Opts...), nil
}

// S3Writer uploads the JSON document to s3://<bucket>/<prefix>/<dir>/<name>.json.
type S3Writer struct {
	Client  PutObjectAPI
	Bucket  string
	Prefix  string
	Metrics SnapshotSource
}

func (w *S3Writer) Name() string { return "s3" }

// Key returns the object key of the report of the named test.
func (w *S3Writer) Key(name, dir string) string {
	return path.Join(w.Prefix, path.Clean("/" + dir)[1:], Filename(name, ".json"))
}

// WriteReport uploads the document.
func (w *S3Writer) WriteReport(ctx context.Context, name, description string, store *stress.Store, dir string) error {
	if w.Client == nil {
		return errors.New("s3 writer has no client")
	}

	data, err := json.Marshal(NewDocument(name, description, store, w.Metrics))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := w.Key(name, dir)
	_, err = w.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.Bucket, key, err)
	}
	return nil
}
