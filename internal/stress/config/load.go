package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/pkg/jsonschema"
)

// DefaultFiles are looked up, in order, when no configuration path is given.
var DefaultFiles = []string{"strest.yaml", "strest.yml", "strest.json"}

//go:embed schema.json
var schemaSource []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// Schema returns the compiled configuration schema.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		schema = jsonschema.MustCompile("strest.schema.json", schemaSource)
	})
	return schema
}

// Find returns the first default configuration file present in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no configuration file found in %s (looked for %v)", dir, DefaultFiles)
}

// Load reads a configuration file, expands environment variables, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML or JSON configuration data. JSON is read as YAML.
func Parse(data []byte) (*Config, error) {
	expanded := []byte(ExpandEnv(string(data)))

	var raw any
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if raw == nil {
		return nil, &stress.ConfigError{Message: "configuration is empty"}
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("configuration cannot be represented as JSON: %w", err)
	}
	if err := Schema().ValidateJSON(doc); err != nil {
		return nil, schemaErrors(err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func schemaErrors(err error) error {
	errs := &stress.ConfigErrors{}
	var verrs jsonschema.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			errs.Add("", e.Error())
		}
	} else {
		errs.Add("", err.Error())
	}
	return errs
}
