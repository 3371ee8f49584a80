// Package config holds the gateway configuration.
//
// Values are layered: Default(), then an optional YAML file, then
// environment variables, then command-line flags (applied by the CLI).
// Validate runs once before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends accepted by Config.Backend.
const (
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Environment variables read by ApplyEnv.
const (
	EnvBucket      = "S3PROXY_BUCKET"
	EnvAddr        = "S3PROXY_ADDR"
	EnvConcurrency = "S3PROXY_CONCURRENCY"
	EnvPort        = "PORT"
)

// ErrMissingBucket is returned by Validate when no bucket is configured.
var ErrMissingBucket = errors.New("missing configuration for S3 bucket: the bucket must be set to an S3 bucket name")

// Config is the gateway configuration.
type Config struct {
	Bucket      string `yaml:"bucket"`
	Addr        string `yaml:"addr"`
	Backend     string `yaml:"backend"`
	Concurrency int    `yaml:"concurrency"`

	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Debug    bool `yaml:"debug"`
	LogHuman bool `yaml:"log_human"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Backend:         BackendS3,
		Concurrency:     16,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. PORT is honored for
// platforms that inject it; S3PROXY_ADDR wins when both are set.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvBucket); v != "" {
		cfg.Bucket = v
	}
	if v := getenv(EnvPort); v != "" {
		cfg.Addr = ":" + v
	}
	if v := getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvConcurrency, v, err)
		}
		cfg.Concurrency = n
	}
	return cfg, nil
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return ErrMissingBucket
	}
	if c.Backend != BackendS3 && c.Backend != BackendMemory {
		return fmt.Errorf("unknown backend %q: want %s or %s", c.Backend, BackendS3, BackendMemory)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	return nil
}
