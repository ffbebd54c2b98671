package morsr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's YAML bundle. LoadConfig decodes it strictly, so a
// misspelled key fails the load instead of silently keeping a default.
type Config struct {
	Phi        PhiWeights       `yaml:"phi"`
	Acceptance AcceptanceConfig `yaml:"acceptance"`
	Protocol   ProtocolSection  `yaml:"protocol"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Cache      CacheConfig      `yaml:"cache"`
}

// AcceptanceConfig configures the acceptance rule.
type AcceptanceConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// ProtocolSection configures the pulse sweep by operator name.
type ProtocolSection struct {
	MaxIterations int      `yaml:"max_iterations"`
	Operators     []string `yaml:"operators"`
	StopOnPlateau bool     `yaml:"stop_on_plateau"`
}

// EmbedderConfig configures the embedder.
type EmbedderConfig struct {
	Epsilon float64 `yaml:"epsilon"`
}

// CacheConfig configures the overlay cache and its optional persistent backend.
type CacheConfig struct {
	MaxSize          int           `yaml:"max_size"`
	TTLSeconds       int           `yaml:"ttl_seconds"`        // 0 = no expiry in the backend
	BackendTimeoutMs int           `yaml:"backend_timeout_ms"` // per backend call
	Backend          BackendConfig `yaml:"backend"`
}

// BackendConfig selects and parameterizes a persistent cache backend.
type BackendConfig struct {
	Driver    string `yaml:"driver"`   // "", none, memory, sqlite, postgres, s3
	Path      string `yaml:"path"`     // sqlite file
	DSN       string `yaml:"dsn"`      // postgres connection string
	Bucket    string `yaml:"bucket"`   // s3
	Region    string `yaml:"region"`   // s3
	Endpoint  string `yaml:"endpoint"` // s3, optional (MinIO)
	Prefix    string `yaml:"prefix"`   // s3 key prefix
	PathStyle bool   `yaml:"path_style"`
}

// ValidBackendDrivers is the set of recognized cache backend drivers.
var ValidBackendDrivers = map[string]bool{"": true, "none": true, "memory": true, "sqlite": true, "postgres": true, "s3": true}

// DefaultCacheSize is the default in-memory cache capacity.
const DefaultCacheSize = 1024

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Phi:        DefaultPhiWeights(),
		Acceptance: AcceptanceConfig{Tolerance: DefaultTolerance},
		Protocol: ProtocolSection{
			MaxIterations: DefaultMaxIterations,
			Operators:     append([]string(nil), DefaultOperatorSequence...),
		},
		Embedder: EmbedderConfig{Epsilon: DefaultEmbedEpsilon},
		Cache: CacheConfig{
			MaxSize:          DefaultCacheSize,
			BackendTimeoutMs: 2000,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading engine config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks names and parameter ranges.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"phi.alpha": c.Phi.Alpha, "phi.beta": c.Phi.Beta, "phi.gamma": c.Phi.Gamma, "phi.delta": c.Phi.Delta,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if !(c.Acceptance.Tolerance > 0) {
		return fmt.Errorf("acceptance.tolerance must be positive, got %v", c.Acceptance.Tolerance)
	}
	if c.Protocol.MaxIterations < 0 {
		return fmt.Errorf("protocol.max_iterations must be non-negative, got %d", c.Protocol.MaxIterations)
	}
	if len(c.Protocol.Operators) == 0 {
		return fmt.Errorf("protocol.operators must name at least one operator")
	}
	for _, name := range c.Protocol.Operators {
		if !IsValidOperatorName(name) {
			return fmt.Errorf("protocol.operators: %q: %w", name, ErrUnknownOperator)
		}
	}
	if c.Embedder.Epsilon < 0 {
		return fmt.Errorf("embedder.epsilon must be non-negative, got %v", c.Embedder.Epsilon)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must be non-negative, got %d", c.Cache.TTLSeconds)
	}
	if c.Cache.BackendTimeoutMs < 0 {
		return fmt.Errorf("cache.backend_timeout_ms must be non-negative, got %d", c.Cache.BackendTimeoutMs)
	}
	if !ValidBackendDrivers[c.Cache.Backend.Driver] {
		return fmt.Errorf("unknown cache backend driver %q", c.Cache.Backend.Driver)
	}
	return nil
}
