// Package config loads the vecstore CLI configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "VECSTORE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Backend names.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinIO = "minio"
)

// Config is the CLI configuration.
type Config struct {
	Namespace string      `koanf:"namespace"`
	Store     StoreConfig `koanf:"store"`
}

// StoreConfig selects and configures the blob store holding snapshots.
type StoreConfig struct {
	Backend   string `koanf:"backend"` // local, s3 or minio
	Dir       string `koanf:"dir"`     // local working directory
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Secure    bool   `koanf:"secure"`
}

// Load reads the YAML file at path (skipped when empty), then VECSTORE_*
// environment variables, then overrides. Later sources win.
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	VECSTORE_NAMESPACE        -> namespace
//	VECSTORE_STORE_BUCKET     -> store.bucket
//	VECSTORE_STORE_ACCESS_KEY -> store.access_key
//
// overrides use the same dotted keys, e.g. "store.backend".
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	return parts[0] + "." + parts[1]
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendLocal
	}

	if cfg.Store.Backend == BackendLocal && cfg.Store.Dir == "" {
		cfg.Store.Dir = "vecstore_data"
	}
}

// Validate checks that the selected backend is fully configured.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLocal:
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the local backend")
		}
	case BackendS3:
		if c.Store.Bucket == "" {
			return errors.New("store.bucket is required for the s3 backend")
		}
	case BackendMinIO:
		if c.Store.Bucket == "" || c.Store.Endpoint == "" {
			return errors.New("store.bucket and store.endpoint are required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return nil
}
