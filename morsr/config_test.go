package morsr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultOperatorSequence, cfg.Protocol.Operators)
	assert.Equal(t, DefaultMaxIterations, cfg.Protocol.MaxIterations)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.MaxSize)

	// the default operator list is a copy
	cfg.Protocol.Operators[0] = "midpoint"
	assert.Equal(t, "rotation", DefaultOperatorSequence[0])
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	// GIVEN a YAML file that sets a subset of fields
	path := writeConfig(t, `
phi:
  beta: 2.5
protocol:
  max_iterations: 3
  operators: [ecc_parity, single_insert]
  stop_on_plateau: true
cache:
  max_size: 16
  ttl_seconds: 60
  backend:
    driver: sqlite
    path: /tmp/overlays.db
`)

	// WHEN loaded
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// THEN listed fields are set and the rest keep their defaults
	assert.Equal(t, 2.5, cfg.Phi.Beta)
	assert.Equal(t, 1.0, cfg.Phi.Alpha)
	assert.Equal(t, 3, cfg.Protocol.MaxIterations)
	assert.Equal(t, []string{"ecc_parity", "single_insert"}, cfg.Protocol.Operators)
	assert.True(t, cfg.Protocol.StopOnPlateau)
	assert.Equal(t, DefaultTolerance, cfg.Acceptance.Tolerance)
	assert.Equal(t, 16, cfg.Cache.MaxSize)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
	assert.Equal(t, 2000, cfg.Cache.BackendTimeoutMs)
	assert.Equal(t, "sqlite", cfg.Cache.Backend.Driver)
	assert.Equal(t, "/tmp/overlays.db", cfg.Cache.Backend.Path)
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_UnknownField_Rejected(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "protocol:\n  max_iteration: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iteration")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_UnknownOperator(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "protocol:\n  operators: [rotation, shear]\n"))
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Acceptance.Tolerance = 0 }},
		{"negative iterations", func(c *Config) { c.Protocol.MaxIterations = -1 }},
		{"no operators", func(c *Config) { c.Protocol.Operators = nil }},
		{"negative epsilon", func(c *Config) { c.Embedder.Epsilon = -1 }},
		{"zero cache size", func(c *Config) { c.Cache.MaxSize = 0 }},
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -5 }},
		{"negative timeout", func(c *Config) { c.Cache.BackendTimeoutMs = -1 }},
		{"unknown driver", func(c *Config) { c.Cache.Backend.Driver = "redis" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
